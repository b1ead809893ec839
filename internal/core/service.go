package core

import (
	"context"
	"encoding/json"
	"time"

	"deskcore/pkg/domain"
)

// Service exposes transactional workspace operations over a persistent store
// and publishes committed changes to the broker.
type Service struct {
	store   domain.PersistentStore
	broker  *Broker
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger installs a structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(metrics MetricsRecorder) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithTracer installs a span tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithBroker substitutes the change broker; primarily for sharing one broker
// across services in tests.
func WithBroker(broker *Broker) ServiceOption {
	return func(s *Service) {
		if broker != nil {
			s.broker = broker
		}
	}
}

// commitHooker is satisfied by stores that expose their committed change feed.
type commitHooker interface {
	SetCommitHook(func([]domain.Change))
}

// NewService constructs a service over the supplied store. When the store
// exposes a commit hook, committed changes flow into the service broker.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		broker: NewBroker(),
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if hooker, ok := store.(commitHooker); ok {
		hooker.SetCommitHook(func(changes []domain.Change) {
			s.broker.Publish(EventsFromChanges(changes)...)
		})
	}
	return s
}

// Store returns the underlying persistent store.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Broker returns the change broker consumers subscribe to.
func (s *Service) Broker() *Broker { return s.broker }

func (s *Service) instrument(ctx context.Context, operation string) (context.Context, func(err error)) {
	start := time.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	return ctx, func(err error) {
		if s.metrics != nil {
			s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
		}
		if span != nil {
			span.End(err)
		}
		if err != nil {
			s.logger.Error(operation+" failed", "error", err)
		}
	}
}

func (s *Service) logWarnings(res domain.Result) {
	for _, v := range res.Warnings() {
		s.logger.Warn("rule violation", "rule", v.Rule, "severity", string(v.Severity), "message", v.Message)
	}
}

// CreateModule persists a new module instance. When parent is non-nil, the
// create and the association under parent commit in the same transaction, so
// the instance is never visible created-but-unassociated.
func (s *Service) CreateModule(ctx context.Context, m domain.ModuleInstance, parent *domain.Context) (domain.ModuleInstance, domain.Result, error) {
	ctx, done := s.instrument(ctx, "create_module")
	var created domain.ModuleInstance
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateModule(m)
		if err != nil {
			return err
		}
		if parent != nil {
			_, err = tx.Associate(*parent, created.Type, created.ID)
		}
		return err
	})
	done(err)
	s.logWarnings(res)
	return created, res, err
}

// MergeModuleData merges a JSON patch into the instance's data payload.
// Fields absent from the patch are preserved.
func (s *Service) MergeModuleData(ctx context.Context, id string, patch json.RawMessage) (domain.ModuleInstance, domain.Result, error) {
	ctx, done := s.instrument(ctx, "merge_module_data")
	var updated domain.ModuleInstance
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateModule(id, func(m *domain.ModuleInstance) error {
			merged, mergeErr := mergeJSONObjects(m.Data, patch)
			if mergeErr != nil {
				return mergeErr
			}
			m.Data = merged
			return nil
		})
		return err
	})
	done(err)
	s.logWarnings(res)
	return updated, res, err
}

// UpdateModule mutates an instance using the provided mutator.
func (s *Service) UpdateModule(ctx context.Context, id string, mutator func(*domain.ModuleInstance) error) (domain.ModuleInstance, domain.Result, error) {
	ctx, done := s.instrument(ctx, "update_module")
	var updated domain.ModuleInstance
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateModule(id, mutator)
		return err
	})
	done(err)
	s.logWarnings(res)
	return updated, res, err
}

// DeleteModule permanently removes an instance. Association lists of other
// instances are not swept; stale references are filtered lazily on read and
// reported by the dangling-reference rule.
func (s *Service) DeleteModule(ctx context.Context, id string) (domain.Result, error) {
	ctx, done := s.instrument(ctx, "delete_module")
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteModule(id)
	})
	done(err)
	s.logWarnings(res)
	return res, err
}

// RemoveModule disassociates the instance from parent when parent is non-nil;
// the instance itself survives. Without a parent the instance is deleted.
func (s *Service) RemoveModule(ctx context.Context, childType domain.ModuleType, id string, parent *domain.Context) (domain.Result, error) {
	if parent == nil {
		return s.DeleteModule(ctx, id)
	}
	return s.Disassociate(ctx, *parent, childType, id)
}

// Associate appends the child reference to the parent's association list.
// Idempotent: associating an already-present child leaves the list unchanged.
func (s *Service) Associate(ctx context.Context, parent domain.Context, childType domain.ModuleType, childID string) (domain.Result, error) {
	ctx, done := s.instrument(ctx, "associate")
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.Associate(parent, childType, childID)
		return err
	})
	done(err)
	s.logWarnings(res)
	return res, err
}

// Disassociate removes every occurrence of the child reference from the
// parent's association list. Removing an absent child is a successful no-op.
func (s *Service) Disassociate(ctx context.Context, parent domain.Context, childType domain.ModuleType, childID string) (domain.Result, error) {
	ctx, done := s.instrument(ctx, "disassociate")
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.Disassociate(parent, childType, childID)
		return err
	})
	done(err)
	s.logWarnings(res)
	return res, err
}

// ReorderChildren rewrites the order of the parent's association list for one
// child type. The new order must keep the same membership.
func (s *Service) ReorderChildren(ctx context.Context, parent domain.Context, childType domain.ModuleType, ids []string) (domain.Result, error) {
	ctx, done := s.instrument(ctx, "reorder_children")
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.ReorderChildren(parent, childType, ids)
		return err
	})
	done(err)
	s.logWarnings(res)
	return res, err
}

// GetModule retrieves an instance by id.
func (s *Service) GetModule(id string) (domain.ModuleInstance, bool) {
	return s.store.GetModule(id)
}

// ListModules returns all instances of the given type.
func (s *Service) ListModules(t domain.ModuleType) []domain.ModuleInstance {
	return s.store.ListModules(t)
}

// ListByContext returns the children of the given type under parent, in the
// order stored in the parent's association list.
func (s *Service) ListByContext(parent domain.Context, child domain.ModuleType) []domain.ModuleInstance {
	return s.store.ListByContext(parent, child)
}

// ParentsOf returns the instances whose association lists reference the child.
func (s *Service) ParentsOf(child domain.ModuleType, childID string) []domain.ModuleInstance {
	return s.store.ParentsOf(child, childID)
}

// PruneDangling removes association entries whose ids no longer resolve.
// Explicit maintenance counterpart to the lazy filtering reads perform.
func (s *Service) PruneDangling(ctx context.Context) (domain.Result, error) {
	ctx, done := s.instrument(ctx, "prune_dangling")
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		view := tx.Snapshot()
		for _, m := range view.ListAll() {
			for childType, ids := range m.SubModules {
				for _, id := range ids {
					if _, ok := view.FindModule(id); ok {
						continue
					}
					if _, err := tx.Disassociate(domain.ContextOf(m), childType, id); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	done(err)
	s.logWarnings(res)
	return res, err
}

// mergeJSONObjects overlays patch onto base at the top level. A nil base is
// treated as an empty object; a nil patch returns base unchanged.
func mergeJSONObjects(base, patch json.RawMessage) (json.RawMessage, error) {
	if len(patch) == 0 {
		return base, nil
	}
	merged := map[string]any{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &merged); err != nil {
			return nil, err
		}
	}
	overlay := map[string]any{}
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return nil, err
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return json.Marshal(merged)
}
