package core

import (
	"context"
	"testing"

	"deskcore/pkg/domain"
)

// countingAdapter wraps a ModuleAdapter and records List invocations per
// parent context.
type countingAdapter struct {
	ModuleAdapter
	listCalls map[string]int
}

func newCountingAdapter(inner ModuleAdapter) *countingAdapter {
	return &countingAdapter{ModuleAdapter: inner, listCalls: map[string]int{}}
}

func (c *countingAdapter) List(ctx context.Context, parent *domain.Context) ([]domain.ModuleInstance, error) {
	key := "all"
	if parent != nil {
		key = string(parent.Type) + ":" + parent.ID
	}
	c.listCalls[key]++
	return c.ModuleAdapter.List(ctx, parent)
}

type titledAdapter struct {
	Adapter
}

func (titledAdapter) Title(m domain.ModuleInstance) string { return m.ID }

func newComposerFixture(t *testing.T) (*Service, *Composer, map[domain.ModuleType]*countingAdapter) {
	t.Helper()
	s := newTestService(t)
	registry := NewRegistry()
	counters := map[domain.ModuleType]*countingAdapter{}
	for _, moduleType := range []domain.ModuleType{domain.ModuleChecklist, domain.ModuleNote} {
		counter := newCountingAdapter(titledAdapter{Adapter: NewAdapter(s, moduleType)})
		counters[moduleType] = counter
		if err := registry.Register(RegistryEntry{Adapter: counter, DefaultTitle: string(moduleType)}); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return s, NewComposer(registry), counters
}

func TestCompositionZeroValueIsIdle(t *testing.T) {
	var c Composition
	if c.State != CompositionIdle {
		t.Fatalf("zero composition must be idle, got %q", c.State)
	}
}

func TestComposeEmptyContext(t *testing.T) {
	s, composer, _ := newComposerFixture(t)
	parent := createInstance(t, s, domain.ModuleChecklist, `{"name":"Empty"}`, nil)

	composition, err := composer.Compose(context.Background(), domain.ContextOf(parent), nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if composition.State != CompositionEmpty || len(composition.Sections) != 0 {
		t.Fatalf("expected empty composition, got %+v", composition)
	}
}

func TestComposeNestsSectionsRecursively(t *testing.T) {
	s, composer, _ := newComposerFixture(t)
	root := createInstance(t, s, domain.ModuleChecklist, `{"name":"Root"}`, nil)
	rootCtx := domain.ContextOf(root)
	inner := createInstance(t, s, domain.ModuleNote, `{"text":"inner"}`, &rootCtx)
	innerCtx := domain.ContextOf(inner)
	createInstance(t, s, domain.ModuleChecklist, `{"name":"Leaf"}`, &innerCtx)

	composition, err := composer.Compose(context.Background(), rootCtx, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if composition.State != CompositionSettled || len(composition.Sections) != 1 {
		t.Fatalf("expected one settled section, got %+v", composition)
	}
	section := composition.Sections[0]
	if section.Type != domain.ModuleNote || len(section.Items) != 1 {
		t.Fatalf("unexpected section %+v", section)
	}
	nested := section.Items[0].Children
	if nested.State != CompositionSettled || len(nested.Sections) != 1 || nested.Sections[0].Type != domain.ModuleChecklist {
		t.Fatalf("expected nested checklist section, got %+v", nested)
	}
}

func TestComposeStopsAtCycleWithoutListingThatLevel(t *testing.T) {
	s, composer, counters := newComposerFixture(t)
	a := createInstance(t, s, domain.ModuleChecklist, `{"name":"A"}`, nil)
	aCtx := domain.ContextOf(a)
	b := createInstance(t, s, domain.ModuleNote, `{"text":"B"}`, &aCtx)
	bCtx := domain.ContextOf(b)
	// Close the loop: A embeds B, B embeds A.
	if _, err := s.Associate(context.Background(), bCtx, a.Type, a.ID); err != nil {
		t.Fatalf("associate cycle edge: %v", err)
	}

	composition, err := composer.Compose(context.Background(), aCtx, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	// Walk to the re-entrant A composition: A -> notes section -> B -> checklists section -> A.
	bItem := composition.Sections[0].Items[0]
	aAgain := bItem.Children.Sections[0].Items[0]
	if aAgain.Instance.ID != a.ID {
		t.Fatalf("expected re-entrant instance A, got %s", aAgain.Instance.ID)
	}
	if aAgain.Children.State != CompositionCycleDetected {
		t.Fatalf("expected cycle detection, got %+v", aAgain.Children)
	}

	// Each context is listed exactly once per adapter; the repeated A level is
	// never listed again.
	aKey := "checklist:" + a.ID
	bKey := "note:" + b.ID
	for moduleType, counter := range counters {
		if counter.listCalls[aKey] != 1 || counter.listCalls[bKey] != 1 {
			t.Fatalf("%s adapter list calls: %v", moduleType, counter.listCalls)
		}
	}
}
