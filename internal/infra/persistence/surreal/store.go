// Package surreal provides a SurrealDB-backed persistent store. Transactions
// run against the embedded in-memory store; committed rows are mirrored into a
// SurrealDB table over the websocket RPC connection, one record per module
// instance, and hydrated back on open.
package surreal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"deskcore/internal/infra/persistence/memory"
	"deskcore/pkg/domain"

	surrealdb "github.com/surrealdb/surrealdb.go"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const defaultTable = "module"

// Config holds connection parameters for the SurrealDB endpoint.
type Config struct {
	URL       string // websocket endpoint, e.g. ws://localhost:8000/rpc
	Namespace string
	Database  string
	User      string
	Pass      string
	Table     string // defaults to "module"
}

// Store persists state to SurrealDB while reusing the in-memory implementation
// for transactions.
type Store struct {
	*memory.Store
	db       *surrealdb.DB
	table    string
	mu       sync.Mutex
	mirrored map[string]struct{}
}

// record wraps a module instance for storage. The instance JSON lives under a
// dedicated field so its id does not collide with SurrealDB's record id.
type record struct {
	Doc domain.ModuleInstance `json:"doc"`
}

// NewStore connects to SurrealDB, hydrates the in-memory store from the module
// table, and returns a mirroring persistent store.
func NewStore(cfg Config, engine *domain.RulesEngine) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("surreal url required")
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	db, err := surrealdb.New(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect surreal: %w", err)
	}
	if cfg.User != "" {
		if _, err := db.Signin(map[string]any{"user": cfg.User, "pass": cfg.Pass}); err != nil {
			return nil, fmt.Errorf("signin surreal: %w", err)
		}
	}
	if _, err := db.Use(cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("use %s/%s: %w", cfg.Namespace, cfg.Database, err)
	}
	mem := memory.NewStore(engine)
	s := &Store{Store: mem, db: db, table: table, mirrored: make(map[string]struct{})}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw, err := s.db.Select(s.table)
	if err != nil {
		return fmt.Errorf("select %s: %w", s.table, err)
	}
	if raw == nil {
		return nil
	}
	// The driver decodes rows as generic JSON values; round-trip through
	// encoding/json to reach typed records.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	var rows []record
	if err := json.Unmarshal(encoded, &rows); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	snapshot := memory.Snapshot{Modules: make(map[string]domain.ModuleInstance, len(rows))}
	for _, r := range rows {
		if r.Doc.ID == "" {
			continue
		}
		snapshot.Modules[r.Doc.ID] = r.Doc
		s.mirrored[r.Doc.ID] = struct{}{}
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) thing(id string) string {
	return s.table + ":" + id
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	for id, m := range snapshot.Modules {
		payload, err := json.Marshal(record{Doc: m})
		if err != nil {
			return fmt.Errorf("encode %s: %w", id, err)
		}
		var content map[string]any
		if err := json.Unmarshal(payload, &content); err != nil {
			return fmt.Errorf("decode %s: %w", id, err)
		}
		if _, err := s.db.Update(s.thing(id), content); err != nil {
			return fmt.Errorf("upsert %s: %w", id, err)
		}
		s.mirrored[id] = struct{}{}
	}
	for id := range s.mirrored {
		if _, ok := snapshot.Modules[id]; ok {
			continue
		}
		if _, err := s.db.Delete(s.thing(id)); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		delete(s.mirrored, id)
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then
// mirrors the committed state to SurrealDB.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Close terminates the websocket connection.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}
