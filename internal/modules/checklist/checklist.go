// Package checklist provides the checklist module adapter.
package checklist

import (
	"context"
	"encoding/json"
	"fmt"

	"deskcore/internal/core"
	"deskcore/pkg/domain"
)

// DefaultTitle is the section heading used for checklists embedded in
// another module.
const DefaultTitle = "Checklists"

// Adapter serves checklist instances through the generic module surface.
type Adapter struct {
	core.Adapter
}

// NewAdapter builds the checklist adapter over the service.
func NewAdapter(service *core.Service) *Adapter {
	return &Adapter{Adapter: core.NewAdapter(service, domain.ModuleChecklist)}
}

// Title returns the checklist's name, or a placeholder when it has none.
func (a *Adapter) Title(m domain.ModuleInstance) string {
	var data domain.ChecklistData
	if err := json.Unmarshal(m.Data, &data); err == nil && data.Name != "" {
		return data.Name
	}
	return "Untitled checklist"
}

// Create persists a checklist with the given name, optionally associated
// under parent.
func Create(ctx context.Context, adapter *Adapter, name string, parent *domain.Context) (string, error) {
	raw, err := json.Marshal(domain.ChecklistData{Name: name, Items: []domain.ChecklistItem{}})
	if err != nil {
		return "", err
	}
	return adapter.Adapter.Create(ctx, core.CreateInput{Data: raw, Context: parent})
}

// AddItem appends an unchecked item to the checklist.
func AddItem(ctx context.Context, adapter *Adapter, id, text string) error {
	return mutateData(ctx, adapter, id, func(data *domain.ChecklistData) error {
		data.Items = append(data.Items, domain.ChecklistItem{Text: text})
		return nil
	})
}

// ToggleItem flips the done flag of the item at index.
func ToggleItem(ctx context.Context, adapter *Adapter, id string, index int) error {
	return mutateData(ctx, adapter, id, func(data *domain.ChecklistData) error {
		if index < 0 || index >= len(data.Items) {
			return fmt.Errorf("checklist %s has no item at index %d", id, index)
		}
		data.Items[index].Done = !data.Items[index].Done
		return nil
	})
}

// RemoveItem deletes the item at index.
func RemoveItem(ctx context.Context, adapter *Adapter, id string, index int) error {
	return mutateData(ctx, adapter, id, func(data *domain.ChecklistData) error {
		if index < 0 || index >= len(data.Items) {
			return fmt.Errorf("checklist %s has no item at index %d", id, index)
		}
		data.Items = append(data.Items[:index], data.Items[index+1:]...)
		return nil
	})
}

// Rename sets the checklist's name.
func Rename(ctx context.Context, adapter *Adapter, id, name string) error {
	raw, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return err
	}
	return adapter.Update(ctx, id, raw)
}

func mutateData(ctx context.Context, adapter *Adapter, id string, mutate func(*domain.ChecklistData) error) error {
	_, _, err := adapter.Service().UpdateModule(ctx, id, func(m *domain.ModuleInstance) error {
		var data domain.ChecklistData
		if len(m.Data) > 0 {
			if err := json.Unmarshal(m.Data, &data); err != nil {
				return fmt.Errorf("decode checklist %s: %w", id, err)
			}
		}
		if err := mutate(&data); err != nil {
			return err
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		m.Data = raw
		return nil
	})
	return err
}
