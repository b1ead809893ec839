package core

import (
	"context"
	"sync"

	"deskcore/pkg/domain"
)

// ListView maintains a self-refreshing collection of one module type's
// instances, scoped to an optional parent context. It refreshes itself when a
// commit affecting its scope is published and when its scope identity
// changes.
type ListView struct {
	adapter ModuleAdapter

	mu      sync.Mutex
	parent  *domain.Context
	items   []domain.ModuleInstance
	loading bool
	loadErr string
	sub     *Subscription
	closed  bool
}

// NewListView builds a view over the adapter scoped to parent (nil for all
// instances) and performs the initial load.
func NewListView(ctx context.Context, adapter ModuleAdapter, parent *domain.Context) *ListView {
	v := &ListView{adapter: adapter}
	v.SetContext(ctx, parent)
	return v
}

// SetContext rescopes the view. Changing to a context with a different
// identity resubscribes and reloads; setting the same identity is a no-op.
func (v *ListView) SetContext(ctx context.Context, parent *domain.Context) {
	v.mu.Lock()
	if v.closed || sameScope(v.parent, parent) && v.sub != nil {
		v.mu.Unlock()
		return
	}
	if v.sub != nil {
		v.sub.Close()
	}
	if parent != nil {
		scoped := *parent
		v.parent = &scoped
	} else {
		v.parent = nil
	}
	v.sub = v.adapter.Subscribe(func() { _ = v.Refresh(context.Background()) }, SubscribeOptions{Context: v.parent})
	v.mu.Unlock()
	_ = v.Refresh(ctx)
}

func sameScope(a, b *domain.Context) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Refresh reloads the view's items from the adapter and returns the load
// outcome so callers can chain success or failure handling onto it. On
// failure the previous items are discarded and the error is retained for
// display.
func (v *ListView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.loading = true
	parent := v.parent
	v.mu.Unlock()

	items, err := v.adapter.List(ctx, parent)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.loading = false
	if err != nil {
		v.items = nil
		v.loadErr = err.Error()
		return err
	}
	v.items = items
	v.loadErr = ""
	return nil
}

// Items returns the most recently loaded instances.
func (v *ListView) Items() []domain.ModuleInstance {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.ModuleInstance(nil), v.items...)
}

// Loading reports whether a refresh is in flight.
func (v *ListView) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Err returns the message of the last failed load, or "" when the last load
// succeeded.
func (v *ListView) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr
}

// Close releases the view's subscription. Safe to call more than once.
func (v *ListView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.sub != nil {
		v.sub.Close()
		v.sub = nil
	}
}
