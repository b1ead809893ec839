package core

import (
	"context"
	"fmt"

	"deskcore/pkg/domain"
)

// SelfEmbeddingRule blocks any transaction that leaves an instance directly
// referencing itself in its own association list. Transitive cycles are the
// composer's concern; this guards the persisted invariant.
func SelfEmbeddingRule() domain.Rule {
	return selfEmbeddingRule{}
}

type selfEmbeddingRule struct{}

func (selfEmbeddingRule) Name() string { return "self_embedding" }

func (selfEmbeddingRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, m := range view.ListAll() {
		if m.SubModules.Contains(m.Type, m.ID) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "self_embedding",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("module %s:%s embeds itself", m.Type, m.ID),
				Module:   m.Type,
				ModuleID: m.ID,
			})
		}
	}
	return res, nil
}
