package core

import (
	"context"

	"deskcore/pkg/domain"
)

// CompositionState reports the outcome of composing a context's embedded
// modules.
type CompositionState string

// Compose resolves synchronously, so a composition is never observable in a
// loading state: it goes straight from idle to one of the settled outcomes.
const (
	// CompositionIdle is the zero value, marking a composition that has not
	// been resolved yet.
	CompositionIdle CompositionState = ""
	// CompositionSettled marks a composition with at least one section.
	CompositionSettled CompositionState = "settled"
	// CompositionEmpty marks a context with no embedded instances of any
	// registered type.
	CompositionEmpty CompositionState = "empty"
	// CompositionCycleDetected marks a context already present in its own
	// enclosing chain; no sections are loaded for it.
	CompositionCycleDetected CompositionState = "cycle_detected"
)

// CompositionItem is one embedded instance plus its own nested composition.
type CompositionItem struct {
	Instance domain.ModuleInstance
	Title    string
	Children Composition
}

// CompositionSection groups a context's embedded instances of one type.
type CompositionSection struct {
	Type  domain.ModuleType
	Title string
	Items []CompositionItem
}

// Composition is the fully resolved embedded-module tree of one context.
type Composition struct {
	State    CompositionState
	Sections []CompositionSection
}

// Composer resolves the embedded modules of a context across every
// registered module type, recursing into each embedded instance.
type Composer struct {
	registry *Registry
}

// NewComposer builds a composer over the registry.
func NewComposer(registry *Registry) *Composer {
	return &Composer{registry: registry}
}

// Compose resolves parent's embedded modules. chain holds the contexts
// enclosing parent, outermost first; when parent already appears in chain the
// composition short-circuits to CompositionCycleDetected before any adapter
// is consulted, which bounds recursion on cyclic data.
func (c *Composer) Compose(ctx context.Context, parent domain.Context, chain domain.ContextChain) (Composition, error) {
	if chain.Contains(parent) {
		return Composition{State: CompositionCycleDetected}, nil
	}
	childChain := chain.Extend(parent)

	var sections []CompositionSection
	for _, entry := range c.registry.Entries() {
		instances, err := entry.Adapter.List(ctx, &parent)
		if err != nil {
			return Composition{}, err
		}
		if len(instances) == 0 {
			continue
		}
		items := make([]CompositionItem, 0, len(instances))
		for _, instance := range instances {
			children, err := c.Compose(ctx, domain.ContextOf(instance), childChain)
			if err != nil {
				return Composition{}, err
			}
			items = append(items, CompositionItem{
				Instance: instance,
				Title:    entry.Adapter.Title(instance),
				Children: children,
			})
		}
		sections = append(sections, CompositionSection{
			Type:  entry.Adapter.Type(),
			Title: entry.DefaultTitle,
			Items: items,
		})
	}
	if len(sections) == 0 {
		return Composition{State: CompositionEmpty}, nil
	}
	return Composition{State: CompositionSettled, Sections: sections}, nil
}
