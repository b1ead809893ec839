package maildraft

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deskcore/pkg/domain"
)

func instanceOf(t *testing.T, moduleType domain.ModuleType, payload any) domain.ModuleInstance {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return domain.ModuleInstance{Type: moduleType, Data: raw}
}

func TestRenderChecklistMarksDoneItems(t *testing.T) {
	m := instanceOf(t, domain.ModuleChecklist, domain.ChecklistData{
		Name: "Groceries",
		Items: []domain.ChecklistItem{
			{Text: "milk", Done: true},
			{Text: "bread"},
		},
	})
	draft, err := Render(m)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if draft.Subject != "Groceries" {
		t.Fatalf("unexpected subject %q", draft.Subject)
	}
	if !strings.Contains(draft.Body, "[x] milk") || !strings.Contains(draft.Body, "[ ] bread") {
		t.Fatalf("unexpected body %q", draft.Body)
	}
}

func TestRenderNoteUsesFirstLineSubject(t *testing.T) {
	m := instanceOf(t, domain.ModuleNote, domain.NoteData{Text: "Call plumber\nbefore noon"})
	draft, err := Render(m)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if draft.Subject != "Call plumber" || draft.Body != "Call plumber\nbefore noon" {
		t.Fatalf("unexpected draft %+v", draft)
	}
}

func TestRenderRejectsUnknownType(t *testing.T) {
	if _, err := Render(domain.ModuleInstance{Type: "calendar"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestMemoryDrafterRetainsDrafts(t *testing.T) {
	d := NewMemory()
	m := instanceOf(t, domain.ModuleNote, domain.NoteData{Text: "hello"})
	if _, err := d.Draft(context.Background(), m); err != nil {
		t.Fatalf("draft: %v", err)
	}
	drafts := d.Drafts()
	if len(drafts) != 1 || drafts[0].Subject != "hello" {
		t.Fatalf("unexpected drafts %+v", drafts)
	}
}

func TestHTTPDrafterPostsRenderedDraft(t *testing.T) {
	var received Draft
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	drafter, err := NewHTTP(HTTPConfig{DraftURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	m := instanceOf(t, domain.ModuleNote, domain.NoteData{Text: "ship it"})
	draft, err := drafter.Draft(context.Background(), m)
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if received != draft || received.Subject != "ship it" {
		t.Fatalf("gateway received %+v, want %+v", received, draft)
	}
}

func TestHTTPDrafterSurfacesGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "mailbox full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	drafter, err := NewHTTP(HTTPConfig{DraftURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	m := instanceOf(t, domain.ModuleNote, domain.NoteData{Text: "x"})
	if _, err := drafter.Draft(context.Background(), m); err == nil {
		t.Fatalf("expected gateway error")
	}
}
