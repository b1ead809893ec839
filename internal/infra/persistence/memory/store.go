// Package memory provides an in-memory implementation of the workspace
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"deskcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// ModuleInstance aliases domain.ModuleInstance for persistence operations.
	ModuleInstance = domain.ModuleInstance
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	modules map[string]ModuleInstance
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Modules map[string]ModuleInstance `json:"modules"`
}

func newMemoryState() memoryState {
	return memoryState{modules: make(map[string]ModuleInstance)}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{Modules: make(map[string]ModuleInstance, len(state.modules))}
	for id, m := range state.modules {
		s.Modules[id] = m.Clone()
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for id, m := range s.Modules {
		state.modules[id] = m.Clone()
	}
	return state
}

// migrateSnapshot normalizes snapshots written by older builds: missing ids
// are backfilled from map keys, association lists are deduplicated, and empty
// association buckets are dropped.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Modules == nil {
		return snapshot
	}
	migrated := Snapshot{Modules: make(map[string]ModuleInstance, len(snapshot.Modules))}
	for id, m := range snapshot.Modules {
		if m.ID == "" {
			m.ID = id
		}
		if m.SubModules != nil {
			normalized := make(domain.SubModules, len(m.SubModules))
			for t, ids := range m.SubModules {
				deduped := dedupeStrings(ids)
				if len(deduped) > 0 {
					normalized[t] = deduped
				}
			}
			if len(normalized) == 0 {
				normalized = nil
			}
			m.SubModules = normalized
		}
		migrated.Modules[id] = m
	}
	return migrated
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for id, m := range s.modules {
		cloned.modules[id] = m.Clone()
	}
	return cloned
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func removeString(values []string, id string) []string {
	out := values[:0]
	for _, v := range values {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Store provides an in-memory transactional store for the workspace.
type Store struct {
	mu       sync.RWMutex
	state    memoryState
	engine   *RulesEngine
	nowFn    func() time.Time
	onCommit func([]Change)
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the engine evaluating transactions.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

// NowFunc returns the clock used to stamp created/updated times.
func (s *Store) NowFunc() func() time.Time {
	return s.nowFn
}

// SetNowFunc overrides the clock; intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

// SetCommitHook registers a callback invoked with the recorded changes of
// every successfully committed transaction. The hook runs outside the store
// lock and must not call back into RunInTransaction synchronously from the
// same goroutine expectation as delivery ordering; it receives clones.
func (s *Store) SetCommitHook(fn func([]Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCommit = fn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListAll returns every module instance in the snapshot.
func (v transactionView) ListAll() []ModuleInstance {
	out := make([]ModuleInstance, 0, len(v.state.modules))
	for _, m := range v.state.modules {
		out = append(out, m.Clone())
	}
	return out
}

// ListModules returns all instances of the given type.
func (v transactionView) ListModules(t domain.ModuleType) []ModuleInstance {
	out := make([]ModuleInstance, 0)
	for _, m := range v.state.modules {
		if m.Type == t {
			out = append(out, m.Clone())
		}
	}
	return out
}

// ListByContext returns the children of the given type under parent, in
// exactly the order stored in the parent's association list. Ids that no
// longer resolve, or resolve to a different type, are skipped.
func (v transactionView) ListByContext(parent domain.Context, child domain.ModuleType) []ModuleInstance {
	return listByContext(v.state, parent, child)
}

// FindModule retrieves an instance by id from the snapshot.
func (v transactionView) FindModule(id string) (ModuleInstance, bool) {
	m, ok := v.state.modules[id]
	if !ok {
		return ModuleInstance{}, false
	}
	return m.Clone(), true
}

func listByContext(state *memoryState, parent domain.Context, child domain.ModuleType) []ModuleInstance {
	out := make([]ModuleInstance, 0)
	p, ok := state.modules[parent.ID]
	if !ok || p.Type != parent.Type {
		return out
	}
	for _, id := range p.SubModules[child] {
		c, ok := state.modules[id]
		if !ok || c.Type != child {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			s.mu.Unlock()
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			s.mu.Unlock()
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	hook := s.onCommit
	changes := tx.changes
	s.mu.Unlock()

	if hook != nil && len(changes) > 0 {
		hook(changes)
	}
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes a read-only view of the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// CreateModule stores a new module instance within the transaction.
func (tx *transaction) CreateModule(m ModuleInstance) (ModuleInstance, error) {
	if m.Type == "" {
		return ModuleInstance{}, fmt.Errorf("module type is required")
	}
	if m.ID == "" {
		m.ID = tx.store.newID()
	}
	if _, exists := tx.state.modules[m.ID]; exists {
		return ModuleInstance{}, fmt.Errorf("module %q already exists", m.ID)
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.modules[m.ID] = m.Clone()
	after := m.Clone()
	tx.recordChange(Change{Module: m.Type, ModuleID: m.ID, Action: domain.ActionCreate, After: &after})
	return m.Clone(), nil
}

// UpdateModule mutates an instance using the provided mutator function. The
// id and module type are immutable; mutator changes to either are discarded.
func (tx *transaction) UpdateModule(id string, mutator func(*ModuleInstance) error) (ModuleInstance, error) {
	current, ok := tx.state.modules[id]
	if !ok {
		return ModuleInstance{}, domain.ErrNotFound{ID: id}
	}
	before := current.Clone()
	if err := mutator(&current); err != nil {
		return ModuleInstance{}, err
	}
	current.ID = id
	current.Type = before.Type
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.modules[id] = current.Clone()
	after := current.Clone()
	tx.recordChange(Change{Module: current.Type, ModuleID: id, Action: domain.ActionUpdate, Before: &before, After: &after})
	return current.Clone(), nil
}

// DeleteModule removes an instance from the transaction state. Other
// instances' association lists are left untouched; stale references are
// filtered lazily on read.
func (tx *transaction) DeleteModule(id string) error {
	current, ok := tx.state.modules[id]
	if !ok {
		return domain.ErrNotFound{ID: id}
	}
	delete(tx.state.modules, id)
	before := current.Clone()
	tx.recordChange(Change{Module: current.Type, ModuleID: id, Action: domain.ActionDelete, Before: &before})
	return nil
}

// FindModule retrieves an instance by id from the transaction state.
func (tx *transaction) FindModule(id string) (ModuleInstance, bool) {
	m, ok := tx.state.modules[id]
	if !ok {
		return ModuleInstance{}, false
	}
	return m.Clone(), true
}

func (tx *transaction) parentFor(parent domain.Context) (ModuleInstance, error) {
	p, ok := tx.state.modules[parent.ID]
	if !ok {
		return ModuleInstance{}, domain.ErrNotFound{Module: parent.Type, ID: parent.ID}
	}
	if p.Type != parent.Type {
		return ModuleInstance{}, fmt.Errorf("context type mismatch: %s is a %s, not a %s", parent.ID, p.Type, parent.Type)
	}
	return p, nil
}

// Associate appends childID to the parent's association list for childType.
// The operation is idempotent: an id already present is left where it is.
// The child's own existence is not verified here.
func (tx *transaction) Associate(parent domain.Context, childType domain.ModuleType, childID string) (ModuleInstance, error) {
	if childType == parent.Type && childID == parent.ID {
		return ModuleInstance{}, fmt.Errorf("module %s:%s cannot embed itself", parent.Type, parent.ID)
	}
	p, err := tx.parentFor(parent)
	if err != nil {
		return ModuleInstance{}, err
	}
	if p.SubModules.Contains(childType, childID) {
		return p.Clone(), nil
	}
	return tx.UpdateModule(p.ID, func(m *ModuleInstance) error {
		if m.SubModules == nil {
			m.SubModules = make(domain.SubModules)
		}
		m.SubModules[childType] = append(m.SubModules[childType], childID)
		return nil
	})
}

// Disassociate removes every occurrence of childID from the parent's
// association list for childType. A missing id is a no-op, not an error.
func (tx *transaction) Disassociate(parent domain.Context, childType domain.ModuleType, childID string) (ModuleInstance, error) {
	p, err := tx.parentFor(parent)
	if err != nil {
		return ModuleInstance{}, err
	}
	if !p.SubModules.Contains(childType, childID) {
		return p.Clone(), nil
	}
	return tx.UpdateModule(p.ID, func(m *ModuleInstance) error {
		trimmed := removeString(m.SubModules[childType], childID)
		if trimmed == nil {
			delete(m.SubModules, childType)
		} else {
			m.SubModules[childType] = trimmed
		}
		if len(m.SubModules) == 0 {
			m.SubModules = nil
		}
		return nil
	})
}

// ReorderChildren rewrites the parent's association list for childType. The
// new order must be a permutation of the current membership.
func (tx *transaction) ReorderChildren(parent domain.Context, childType domain.ModuleType, ids []string) (ModuleInstance, error) {
	p, err := tx.parentFor(parent)
	if err != nil {
		return ModuleInstance{}, err
	}
	current := p.SubModules[childType]
	if len(ids) != len(current) {
		return ModuleInstance{}, fmt.Errorf("reorder of %s under %s:%s must keep membership: got %d ids, have %d", childType, parent.Type, parent.ID, len(ids), len(current))
	}
	members := make(map[string]struct{}, len(current))
	for _, id := range current {
		members[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := members[id]; !ok {
			return ModuleInstance{}, fmt.Errorf("reorder references %s which is not associated under %s:%s", id, parent.Type, parent.ID)
		}
		delete(members, id)
	}
	return tx.UpdateModule(p.ID, func(m *ModuleInstance) error {
		m.SubModules[childType] = append([]string(nil), ids...)
		return nil
	})
}

// Read helpers ---------------------------------------------------------------

// GetModule retrieves an instance by id from committed state.
func (s *Store) GetModule(id string) (ModuleInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.modules[id]
	if !ok {
		return ModuleInstance{}, false
	}
	return m.Clone(), true
}

// ListModules returns all instances of the given type from committed state.
func (s *Store) ListModules(t domain.ModuleType) []ModuleInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ModuleInstance, 0)
	for _, m := range s.state.modules {
		if m.Type == t {
			out = append(out, m.Clone())
		}
	}
	return out
}

// ListByContext returns children of the given type under parent, in stored order.
func (s *Store) ListByContext(parent domain.Context, child domain.ModuleType) []ModuleInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listByContext(&s.state, parent, child)
}

// ParentsOf returns every instance whose association list references childID
// under the given child type.
func (s *Store) ParentsOf(child domain.ModuleType, childID string) []ModuleInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ModuleInstance, 0)
	for _, m := range s.state.modules {
		if m.SubModules.Contains(child, childID) {
			out = append(out, m.Clone())
		}
	}
	return out
}
