package core

import (
	"testing"

	"deskcore/pkg/domain"
)

func instanceWithChild(id string, childType domain.ModuleType, childID string) *domain.ModuleInstance {
	return &domain.ModuleInstance{
		Base:       domain.Base{ID: id},
		Type:       domain.ModuleChecklist,
		SubModules: domain.SubModules{childType: {childID}},
	}
}

func TestEventsFromChangesCarryClonedDataPayloads(t *testing.T) {
	before := &domain.ModuleInstance{Base: domain.Base{ID: "n1"}, Type: domain.ModuleNote, Data: []byte(`{"text":"old"}`)}
	after := &domain.ModuleInstance{Base: domain.Base{ID: "n1"}, Type: domain.ModuleNote, Data: []byte(`{"text":"new"}`)}

	events := EventsFromChanges([]domain.Change{
		{Module: domain.ModuleNote, ModuleID: "n1", Action: domain.ActionUpdate, Before: before, After: after},
		{Module: domain.ModuleNote, ModuleID: "n2", Action: domain.ActionCreate, After: after},
	})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	update := events[0]
	if !update.BeforeData.Defined() || !update.AfterData.Defined() {
		t.Fatalf("update must carry both sides, got %+v", update)
	}
	if string(update.AfterData.Raw()) != `{"text":"new"}` {
		t.Fatalf("unexpected after payload %s", update.AfterData.Raw())
	}
	raw := update.AfterData.Raw()
	raw[0] = 'X'
	if string(update.AfterData.Raw()) != `{"text":"new"}` || string(after.Data) != `{"text":"new"}` {
		t.Fatalf("payload bytes must be isolated from callers")
	}

	create := events[1]
	if create.BeforeData.Defined() || !create.AfterData.Defined() {
		t.Fatalf("create must carry only the after side, got %+v", create)
	}
}

func TestSubscribeWithoutFiltersReceivesEverything(t *testing.T) {
	b := NewBroker()
	var got []Event
	sub := b.Subscribe(func(ev Event) { got = append(got, ev) })
	defer sub.Close()

	b.Publish(
		Event{Action: domain.ActionCreate, Module: domain.ModuleNote, ID: "n1"},
		Event{Action: domain.ActionDelete, Module: domain.ModuleChecklist, ID: "c1"},
	)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
}

func TestModuleTypeFilterPassesUndeterminedTypes(t *testing.T) {
	b := NewBroker()
	var got []Event
	sub := b.Subscribe(func(ev Event) { got = append(got, ev) }, WithModuleType(domain.ModuleNote))
	defer sub.Close()

	b.Publish(
		Event{Action: domain.ActionCreate, Module: domain.ModuleNote, ID: "n1"},
		Event{Action: domain.ActionCreate, Module: domain.ModuleChecklist, ID: "c1"},
		Event{Action: domain.ActionDelete, ID: "x1"}, // type unknown, must pass
	)
	if len(got) != 2 {
		t.Fatalf("expected note and untyped events, got %+v", got)
	}
	if got[0].ID != "n1" || got[1].ID != "x1" {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestContextFilterMatchesParentRowMutations(t *testing.T) {
	b := NewBroker()
	var got []Event
	sub := b.Subscribe(func(ev Event) { got = append(got, ev) },
		WithContext(domain.Context{Type: domain.ModuleChecklist, ID: "c1"}))
	defer sub.Close()

	b.Publish(
		Event{Action: domain.ActionUpdate, Module: domain.ModuleChecklist, ID: "c1"},
		Event{Action: domain.ActionUpdate, Module: domain.ModuleChecklist, ID: "c2"},
	)
	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("expected only c1 mutations, got %+v", got)
	}
}

func TestTypeAndContextScopesAreUnioned(t *testing.T) {
	b := NewBroker()
	var got []Event
	sub := b.Subscribe(func(ev Event) { got = append(got, ev) },
		WithModuleType(domain.ModuleNote),
		WithContext(domain.Context{Type: domain.ModuleChecklist, ID: "c1"}))
	defer sub.Close()

	b.Publish(
		Event{Action: domain.ActionUpdate, Module: domain.ModuleChecklist, ID: "c1"}, // parent row
		Event{Action: domain.ActionUpdate, Module: domain.ModuleNote, ID: "n1"},      // subscribed type
		Event{Action: domain.ActionUpdate, Module: domain.ModuleChecklist, ID: "c2"}, // neither
	)
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "n1" {
		t.Fatalf("expected parent-row and note events, got %+v", got)
	}
}

func TestWatchedChildFilterFiresOnMembershipTransitions(t *testing.T) {
	b := NewBroker()
	var got []Event
	sub := b.Subscribe(func(ev Event) { got = append(got, ev) },
		WithWatchedChild(domain.ModuleNote, "n1"))
	defer sub.Close()

	added := Event{
		Action: domain.ActionUpdate,
		Module: domain.ModuleChecklist,
		ID:     "c1",
		Before: &domain.ModuleInstance{Base: domain.Base{ID: "c1"}, Type: domain.ModuleChecklist},
		After:  instanceWithChild("c1", domain.ModuleNote, "n1"),
	}
	unrelated := Event{
		Action: domain.ActionUpdate,
		Module: domain.ModuleChecklist,
		ID:     "c1",
		Before: instanceWithChild("c1", domain.ModuleNote, "n1"),
		After:  instanceWithChild("c1", domain.ModuleNote, "n1"),
	}
	removed := Event{
		Action: domain.ActionUpdate,
		Module: domain.ModuleChecklist,
		ID:     "c1",
		Before: instanceWithChild("c1", domain.ModuleNote, "n1"),
		After:  &domain.ModuleInstance{Base: domain.Base{ID: "c1"}, Type: domain.ModuleChecklist},
	}

	b.Publish(added, unrelated, removed)
	if len(got) != 2 {
		t.Fatalf("expected add and remove transitions only, got %d events", len(got))
	}
}

func TestSubscriptionCloseIsIdempotentAndStopsDelivery(t *testing.T) {
	b := NewBroker()
	count := 0
	sub := b.Subscribe(func(Event) { count++ })

	b.Publish(Event{Action: domain.ActionCreate, ID: "a"})
	sub.Close()
	sub.Close()
	b.Publish(Event{Action: domain.ActionCreate, ID: "b"})

	if count != 1 {
		t.Fatalf("expected delivery to stop after close, got %d", count)
	}
}
