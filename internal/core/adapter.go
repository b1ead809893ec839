package core

import (
	"context"
	"encoding/json"

	"deskcore/pkg/domain"
)

// CreateInput carries the payload for creating a module instance through an
// adapter. When Context is non-nil the new instance is associated under it in
// the same transaction.
type CreateInput struct {
	Data    json.RawMessage
	Context *domain.Context
}

// SubscribeOptions narrows an adapter subscription. A non-nil Context limits
// notifications to changes affecting that parent's association list or the
// instances beneath it.
type SubscribeOptions struct {
	Context *domain.Context
}

// ModuleAdapter is the uniform surface a module type exposes to generic
// consumers such as list views and the composer. Implementations wrap the
// service with type-specific presentation.
type ModuleAdapter interface {
	// Type identifies the module type this adapter serves.
	Type() domain.ModuleType
	// List returns the instances visible in the given context; a nil context
	// means all instances of the type.
	List(ctx context.Context, parent *domain.Context) ([]domain.ModuleInstance, error)
	// Create persists a new instance and returns its id.
	Create(ctx context.Context, input CreateInput) (string, error)
	// Update merges a JSON patch into the instance data, preserving fields
	// the patch does not mention.
	Update(ctx context.Context, id string, patch json.RawMessage) error
	// Remove disassociates the instance from parent when parent is non-nil,
	// otherwise deletes it.
	Remove(ctx context.Context, id string, parent *domain.Context) error
	// Key returns a stable identity for the instance.
	Key(m domain.ModuleInstance) string
	// Title returns the display heading for the instance.
	Title(m domain.ModuleInstance) string
	// Subscribe registers onChange to fire after any commit that affects
	// this adapter's scope. Close the subscription to release it.
	Subscribe(onChange func(), opts SubscribeOptions) *Subscription
}

// Adapter is the common ModuleAdapter core; module packages embed it and
// supply presentation on top.
type Adapter struct {
	service    *Service
	moduleType domain.ModuleType
}

// NewAdapter builds the shared adapter core for one module type.
func NewAdapter(service *Service, moduleType domain.ModuleType) Adapter {
	return Adapter{service: service, moduleType: moduleType}
}

// Service returns the underlying service.
func (a Adapter) Service() *Service { return a.service }

// Type implements ModuleAdapter.
func (a Adapter) Type() domain.ModuleType { return a.moduleType }

// List implements ModuleAdapter.
func (a Adapter) List(_ context.Context, parent *domain.Context) ([]domain.ModuleInstance, error) {
	if parent == nil {
		return a.service.ListModules(a.moduleType), nil
	}
	return a.service.ListByContext(*parent, a.moduleType), nil
}

// Create implements ModuleAdapter.
func (a Adapter) Create(ctx context.Context, input CreateInput) (string, error) {
	created, _, err := a.service.CreateModule(ctx, domain.ModuleInstance{
		Type: a.moduleType,
		Data: input.Data,
	}, input.Context)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// Update implements ModuleAdapter.
func (a Adapter) Update(ctx context.Context, id string, patch json.RawMessage) error {
	_, _, err := a.service.MergeModuleData(ctx, id, patch)
	return err
}

// Remove implements ModuleAdapter.
func (a Adapter) Remove(ctx context.Context, id string, parent *domain.Context) error {
	_, err := a.service.RemoveModule(ctx, a.moduleType, id, parent)
	return err
}

// Key implements ModuleAdapter.
func (a Adapter) Key(m domain.ModuleInstance) string { return m.ID }

// Subscribe implements ModuleAdapter. Every subscription watches events of
// the adapter's type; a context-scoped one also watches the parent row
// itself, since association membership lives there and the parent's type
// usually differs from this adapter's.
func (a Adapter) Subscribe(onChange func(), opts SubscribeOptions) *Subscription {
	subOpts := []SubscribeOption{WithModuleType(a.moduleType)}
	if opts.Context != nil {
		subOpts = append(subOpts, WithContext(*opts.Context))
	}
	return a.service.Broker().Subscribe(func(Event) { onChange() }, subOpts...)
}
