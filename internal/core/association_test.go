package core

import (
	"context"
	"errors"
	"testing"

	"deskcore/pkg/domain"
)

// countingStore records how often the persistence layer is reached. Drop
// validation must reject bad payloads before any store call happens.
type countingStore struct {
	txCalls int
}

func (c *countingStore) RunInTransaction(context.Context, func(domain.Transaction) error) (domain.Result, error) {
	c.txCalls++
	return domain.Result{}, nil
}

func (c *countingStore) View(context.Context, func(domain.TransactionView) error) error { return nil }

func (c *countingStore) GetModule(string) (domain.ModuleInstance, bool) {
	return domain.ModuleInstance{}, false
}

func (c *countingStore) ListModules(domain.ModuleType) []domain.ModuleInstance { return nil }

func (c *countingStore) ListByContext(domain.Context, domain.ModuleType) []domain.ModuleInstance {
	return nil
}

func (c *countingStore) ParentsOf(domain.ModuleType, string) []domain.ModuleInstance { return nil }

func TestAssociateFromDropNilPayloadIsSilentNoOp(t *testing.T) {
	store := &countingStore{}
	s := NewService(store)

	called := false
	_, err := s.AssociateFromDrop(context.Background(), nil, DropTarget{}, func(*AssociationError) { called = true })
	if err != nil {
		t.Fatalf("nil payload must not error: %v", err)
	}
	if called {
		t.Fatalf("nil payload must not invoke the error callback")
	}
	if store.txCalls != 0 {
		t.Fatalf("nil payload must not reach the store")
	}
}

func TestAssociateFromDropRejectsSelfBeforeStore(t *testing.T) {
	store := &countingStore{}
	s := NewService(store)
	target := DropTarget{Parent: domain.Context{Type: domain.ModuleChecklist, ID: "c1"}}
	payload := &domain.DragPayload{Type: domain.ModuleChecklist, ID: "c1"}

	var rejection *AssociationError
	_, err := s.AssociateFromDrop(context.Background(), payload, target, func(e *AssociationError) { rejection = e })
	if err == nil {
		t.Fatalf("expected self rejection")
	}
	if rejection == nil || rejection.Kind != AssociationErrorSelf {
		t.Fatalf("expected self rejection, got %+v", rejection)
	}
	if store.txCalls != 0 {
		t.Fatalf("rejected drop must not reach the store, got %d calls", store.txCalls)
	}
}

func TestAssociateFromDropRejectsCycleWithDistinctMessage(t *testing.T) {
	store := &countingStore{}
	s := NewService(store)
	ancestor := domain.Context{Type: domain.ModuleChecklist, ID: "root"}
	target := DropTarget{
		Parent: domain.Context{Type: domain.ModuleNote, ID: "n1"},
		Chain:  domain.ContextChain{ancestor},
	}
	payload := &domain.DragPayload{Type: domain.ModuleChecklist, ID: "root"}

	var rejection *AssociationError
	_, err := s.AssociateFromDrop(context.Background(), payload, target, func(e *AssociationError) { rejection = e })
	if err == nil {
		t.Fatalf("expected cycle rejection")
	}
	if rejection == nil || rejection.Kind != AssociationErrorCycle {
		t.Fatalf("expected cycle rejection, got %+v", rejection)
	}
	if store.txCalls != 0 {
		t.Fatalf("rejected drop must not reach the store")
	}

	// Self and cycle rejections must be distinguishable to the caller.
	selfTarget := DropTarget{Parent: domain.Context{Type: domain.ModuleChecklist, ID: "root"}}
	var selfRejection *AssociationError
	_, _ = s.AssociateFromDrop(context.Background(), payload, selfTarget, func(e *AssociationError) { selfRejection = e })
	if selfRejection == nil || selfRejection.Message == rejection.Message {
		t.Fatalf("self and cycle messages must differ: %q vs %q", selfRejection.Message, rejection.Message)
	}
}

func TestAssociateFromDropWithoutCallbackReturnsTypedError(t *testing.T) {
	s := NewService(&countingStore{})
	target := DropTarget{Parent: domain.Context{Type: domain.ModuleChecklist, ID: "c1"}}
	payload := &domain.DragPayload{Type: domain.ModuleChecklist, ID: "c1"}

	_, err := s.AssociateFromDrop(context.Background(), payload, target, nil)
	var assocErr *AssociationError
	if !errors.As(err, &assocErr) || assocErr.Kind != AssociationErrorSelf {
		t.Fatalf("expected AssociationError self kind, got %v", err)
	}
}

func TestAssociateFromDropValidPayloadCommits(t *testing.T) {
	s := newTestService(t)
	parent := createInstance(t, s, domain.ModuleChecklist, `{"name":"Groceries"}`, nil)
	child := createInstance(t, s, domain.ModuleNote, `{"text":"buy milk"}`, nil)

	payload := &domain.DragPayload{Type: child.Type, ID: child.ID}
	target := DropTarget{Parent: domain.ContextOf(parent)}
	if _, err := s.AssociateFromDrop(context.Background(), payload, target, nil); err != nil {
		t.Fatalf("drop: %v", err)
	}
	children := s.ListByContext(domain.ContextOf(parent), domain.ModuleNote)
	if len(children) != 1 || children[0].ID != child.ID {
		t.Fatalf("expected association committed, got %+v", children)
	}
}
