package core

import (
	"context"

	"deskcore/pkg/domain"
)

// AssociationErrorKind classifies why a drop was rejected before it reached
// the store.
type AssociationErrorKind string

const (
	// AssociationErrorSelf marks a module dropped onto itself.
	AssociationErrorSelf AssociationErrorKind = "self"
	// AssociationErrorCycle marks a module dropped into its own subtree.
	AssociationErrorCycle AssociationErrorKind = "cycle"
)

// AssociationError reports a rejected association attempt.
type AssociationError struct {
	Kind    AssociationErrorKind
	Message string
}

func (e *AssociationError) Error() string { return e.Message }

// DropTarget describes where a drag payload landed: the receiving parent and
// the chain of contexts enclosing it, outermost first.
type DropTarget struct {
	Parent domain.Context
	Chain  domain.ContextChain
}

// AssociateFromDrop validates a dropped payload against the target and, when
// valid, commits the association. A nil payload (garbage or foreign drag) is
// a silent no-op. Self drops and cycle-forming drops are rejected without
// touching the store; the onError callback, when non-nil, receives the
// rejection, otherwise it is logged.
func (s *Service) AssociateFromDrop(ctx context.Context, payload *domain.DragPayload, target DropTarget, onError func(*AssociationError)) (domain.Result, error) {
	if payload == nil {
		return domain.Result{}, nil
	}
	dropped := domain.Context{Type: payload.Type, ID: payload.ID}
	var rejection *AssociationError
	switch {
	case dropped == target.Parent:
		rejection = &AssociationError{
			Kind:    AssociationErrorSelf,
			Message: "cannot associate a module with itself",
		}
	case target.Chain.Contains(dropped):
		rejection = &AssociationError{
			Kind:    AssociationErrorCycle,
			Message: "cannot associate a module inside its own subtree",
		}
	}
	if rejection != nil {
		if onError != nil {
			onError(rejection)
		} else {
			s.logger.Warn("drop rejected", "kind", string(rejection.Kind), "module", string(payload.Type), "id", payload.ID)
		}
		return domain.Result{}, rejection
	}
	return s.Associate(ctx, target.Parent, payload.Type, payload.ID)
}
