// Package assist generates content suggestions for module instances, such as
// candidate checklist items or a note continuation.
package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deskcore/pkg/domain"
)

// Suggester produces suggestions for a module instance. Implementations must
// not mutate the instance.
type Suggester interface {
	Suggest(ctx context.Context, m domain.ModuleInstance) ([]string, error)
}

// Static is a deterministic fallback Suggester used when no provider is
// configured. It derives suggestions from the instance's own payload.
type Static struct{}

// Suggest returns canned follow-ups keyed off the module type.
func (Static) Suggest(_ context.Context, m domain.ModuleInstance) ([]string, error) {
	switch m.Type {
	case domain.ModuleChecklist:
		var data domain.ChecklistData
		if err := json.Unmarshal(m.Data, &data); err != nil || len(data.Items) == 0 {
			return []string{"Add a first item"}, nil
		}
		open := 0
		for _, item := range data.Items {
			if !item.Done {
				open++
			}
		}
		if open == 0 {
			return []string{"Archive this checklist", "Start a follow-up checklist"}, nil
		}
		return []string{fmt.Sprintf("Review %d open items", open)}, nil
	case domain.ModuleNote:
		var data domain.NoteData
		if err := json.Unmarshal(m.Data, &data); err != nil || strings.TrimSpace(data.Text) == "" {
			return []string{"Write a first line"}, nil
		}
		return []string{"Turn this note into a checklist"}, nil
	default:
		return nil, fmt.Errorf("no suggestions for module type %q", m.Type)
	}
}

// prompt renders the instance into the text sent to a language-model
// provider.
func prompt(m domain.ModuleInstance) string {
	var b strings.Builder
	b.WriteString("Suggest up to three short next actions for this ")
	b.WriteString(string(m.Type))
	b.WriteString(". Reply with one suggestion per line, no numbering.\n\n")
	b.Write(m.Data)
	return b.String()
}

// splitSuggestions parses provider output into one suggestion per non-empty
// line.
func splitSuggestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
