package core

import (
	"testing"

	"deskcore/pkg/domain"
)

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	s := newTestService(t)
	registry := NewRegistry()
	order := []domain.ModuleType{domain.ModuleNote, domain.ModuleChecklist}
	for _, moduleType := range order {
		if err := registry.Register(RegistryEntry{
			Adapter:      titledAdapter{Adapter: NewAdapter(s, moduleType)},
			DefaultTitle: string(moduleType),
		}); err != nil {
			t.Fatalf("register %s: %v", moduleType, err)
		}
	}

	types := registry.Types()
	if len(types) != 2 || types[0] != domain.ModuleNote || types[1] != domain.ModuleChecklist {
		t.Fatalf("unexpected order %v", types)
	}
	entries := registry.Entries()
	if entries[0].Adapter.Type() != domain.ModuleNote {
		t.Fatalf("entries must follow registration order")
	}
}

func TestRegistryRejectsDuplicatesAndNilAdapters(t *testing.T) {
	s := newTestService(t)
	registry := NewRegistry()
	entry := RegistryEntry{Adapter: titledAdapter{Adapter: NewAdapter(s, domain.ModuleNote)}}
	if err := registry.Register(entry); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := registry.Register(entry); err == nil {
		t.Fatalf("expected duplicate rejection")
	}
	if err := registry.Register(RegistryEntry{}); err == nil {
		t.Fatalf("expected nil adapter rejection")
	}
}

func TestRegistryLookup(t *testing.T) {
	s := newTestService(t)
	registry := NewRegistry()
	if err := registry.Register(RegistryEntry{
		Adapter:      titledAdapter{Adapter: NewAdapter(s, domain.ModuleChecklist)},
		DefaultTitle: "Checklists",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	entry, ok := registry.Lookup(domain.ModuleChecklist)
	if !ok || entry.DefaultTitle != "Checklists" {
		t.Fatalf("lookup failed: %+v %v", entry, ok)
	}
	if _, ok := registry.Lookup(domain.ModuleNote); ok {
		t.Fatalf("expected miss for unregistered type")
	}
}
