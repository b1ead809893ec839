// Package maildraft turns module instances into shareable email drafts.
package maildraft

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"deskcore/pkg/domain"
)

// Draft is a rendered email draft for a module instance.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Drafter renders a module instance into a draft and hands it to a delivery
// surface.
type Drafter interface {
	Draft(ctx context.Context, m domain.ModuleInstance) (Draft, error)
}

// Render produces the canonical draft text for an instance. Checklists list
// their items with done markers; notes are carried verbatim.
func Render(m domain.ModuleInstance) (Draft, error) {
	switch m.Type {
	case domain.ModuleChecklist:
		var data domain.ChecklistData
		if err := json.Unmarshal(m.Data, &data); err != nil {
			return Draft{}, fmt.Errorf("decode checklist %s: %w", m.ID, err)
		}
		subject := data.Name
		if subject == "" {
			subject = "Checklist"
		}
		var b strings.Builder
		for _, item := range data.Items {
			marker := "[ ]"
			if item.Done {
				marker = "[x]"
			}
			fmt.Fprintf(&b, "%s %s\n", marker, item.Text)
		}
		return Draft{Subject: subject, Body: b.String()}, nil
	case domain.ModuleNote:
		var data domain.NoteData
		if err := json.Unmarshal(m.Data, &data); err != nil {
			return Draft{}, fmt.Errorf("decode note %s: %w", m.ID, err)
		}
		subject := data.Text
		if i := strings.IndexByte(subject, '\n'); i >= 0 {
			subject = subject[:i]
		}
		subject = strings.TrimSpace(subject)
		if subject == "" {
			subject = "Note"
		}
		return Draft{Subject: subject, Body: data.Text}, nil
	default:
		return Draft{}, fmt.Errorf("cannot draft module type %q", m.Type)
	}
}

// Memory collects drafts in process memory. Intended for tests and offline
// use.
type Memory struct {
	mu     sync.Mutex
	drafts []Draft
}

// NewMemory returns an empty in-memory drafter.
func NewMemory() *Memory { return &Memory{} }

// Draft renders and retains the draft.
func (d *Memory) Draft(_ context.Context, m domain.ModuleInstance) (Draft, error) {
	draft, err := Render(m)
	if err != nil {
		return Draft{}, err
	}
	d.mu.Lock()
	d.drafts = append(d.drafts, draft)
	d.mu.Unlock()
	return draft, nil
}

// Drafts returns all retained drafts in creation order.
func (d *Memory) Drafts() []Draft {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Draft(nil), d.drafts...)
}
