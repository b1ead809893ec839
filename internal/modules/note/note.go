// Package note provides the free-text note module adapter.
package note

import (
	"context"
	"encoding/json"
	"strings"

	"deskcore/internal/core"
	"deskcore/pkg/domain"
)

// DefaultTitle is the section heading used for notes embedded in
// another module.
const DefaultTitle = "Notes"

// titleRuneLimit caps how much of the note text is promoted into the title.
const titleRuneLimit = 50

// Adapter serves note instances through the generic module surface.
type Adapter struct {
	core.Adapter
}

// NewAdapter builds the note adapter over the service.
func NewAdapter(service *core.Service) *Adapter {
	return &Adapter{Adapter: core.NewAdapter(service, domain.ModuleNote)}
}

// Title derives a heading from the note text: the first line, truncated to
// titleRuneLimit runes with an ellipsis.
func (a *Adapter) Title(m domain.ModuleInstance) string {
	var data domain.NoteData
	if err := json.Unmarshal(m.Data, &data); err != nil || strings.TrimSpace(data.Text) == "" {
		return "Untitled note"
	}
	line := strings.TrimSpace(data.Text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	runes := []rune(line)
	if len(runes) > titleRuneLimit {
		return string(runes[:titleRuneLimit]) + "…"
	}
	return line
}

// Create persists a note with the given text, optionally associated under
// parent.
func Create(ctx context.Context, adapter *Adapter, text string, parent *domain.Context) (string, error) {
	raw, err := json.Marshal(domain.NoteData{Text: text})
	if err != nil {
		return "", err
	}
	return adapter.Adapter.Create(ctx, core.CreateInput{Data: raw, Context: parent})
}

// SetText replaces the note's text.
func SetText(ctx context.Context, adapter *Adapter, id, text string) error {
	raw, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	return adapter.Update(ctx, id, raw)
}
