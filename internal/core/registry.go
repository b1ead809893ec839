package core

import (
	"fmt"

	"deskcore/pkg/domain"
)

// RegistryEntry pairs an adapter with its workspace defaults.
type RegistryEntry struct {
	Adapter      ModuleAdapter
	DefaultTitle string
}

// Registry holds the module adapters available in a workspace, in
// registration order. Consumers resolve adapters by type instead of linking
// module packages directly.
type Registry struct {
	order   []domain.ModuleType
	entries map[domain.ModuleType]RegistryEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[domain.ModuleType]RegistryEntry{}}
}

// Register adds an adapter under its module type. Registering the same type
// twice is an error.
func (r *Registry) Register(entry RegistryEntry) error {
	if entry.Adapter == nil {
		return fmt.Errorf("registry: nil adapter")
	}
	t := entry.Adapter.Type()
	if t == "" {
		return fmt.Errorf("registry: adapter has no module type")
	}
	if _, exists := r.entries[t]; exists {
		return fmt.Errorf("registry: module type %q already registered", t)
	}
	r.entries[t] = entry
	r.order = append(r.order, t)
	return nil
}

// Lookup resolves the entry for a module type.
func (r *Registry) Lookup(t domain.ModuleType) (RegistryEntry, bool) {
	entry, ok := r.entries[t]
	return entry, ok
}

// Entries returns all registered entries in registration order.
func (r *Registry) Entries() []RegistryEntry {
	out := make([]RegistryEntry, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.entries[t])
	}
	return out
}

// Types returns the registered module types in registration order.
func (r *Registry) Types() []domain.ModuleType {
	return append([]domain.ModuleType(nil), r.order...)
}
