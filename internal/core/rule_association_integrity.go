package core

import (
	"context"
	"fmt"

	"deskcore/pkg/domain"
)

// ChildTypeIntegrityRule warns when an association bucket references an
// instance whose actual type differs from the bucket's key. Association never
// verifies child existence, so this surfaces drift without blocking commits.
func ChildTypeIntegrityRule() domain.Rule {
	return childTypeIntegrityRule{}
}

type childTypeIntegrityRule struct{}

func (childTypeIntegrityRule) Name() string { return "child_type_integrity" }

func (childTypeIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, m := range view.ListAll() {
		for childType, ids := range m.SubModules {
			for _, id := range ids {
				child, ok := view.FindModule(id)
				if !ok {
					continue
				}
				if child.Type != childType {
					res.Violations = append(res.Violations, domain.Violation{
						Rule:     "child_type_integrity",
						Severity: domain.SeverityWarn,
						Message:  fmt.Sprintf("module %s:%s lists %s under %s but it is a %s", m.Type, m.ID, id, childType, child.Type),
						Module:   m.Type,
						ModuleID: m.ID,
					})
				}
			}
		}
	}
	return res, nil
}

// DanglingReferenceRule reports association entries whose ids no longer
// resolve. Hard deletes do not sweep other parents' association lists; reads
// filter these lazily and this rule keeps them visible for maintenance.
func DanglingReferenceRule() domain.Rule {
	return danglingReferenceRule{}
}

type danglingReferenceRule struct{}

func (danglingReferenceRule) Name() string { return "dangling_reference" }

func (danglingReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, m := range view.ListAll() {
		for childType, ids := range m.SubModules {
			for _, id := range ids {
				if _, ok := view.FindModule(id); ok {
					continue
				}
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "dangling_reference",
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("module %s:%s references missing %s %s", m.Type, m.ID, childType, id),
					Module:   m.Type,
					ModuleID: m.ID,
				})
			}
		}
	}
	return res, nil
}

// DefaultRulesEngine returns an engine with the workspace integrity rules
// registered.
func DefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(SelfEmbeddingRule())
	engine.Register(ChildTypeIntegrityRule())
	engine.Register(DanglingReferenceRule())
	return engine
}
