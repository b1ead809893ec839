package archive

import (
	"context"
	"testing"
	"time"

	blobmemory "deskcore/internal/infra/blob/memory"
	"deskcore/internal/infra/persistence/memory"
	"deskcore/pkg/domain"
)

func TestExportRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	var created domain.ModuleInstance
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateModule(domain.ModuleInstance{Type: domain.ModuleChecklist})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	archiver := New(blobmemory.New())
	key, err := archiver.Export(ctx, store)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Wipe and restore into a fresh store.
	restored := memory.NewStore(nil)
	if err := archiver.Restore(ctx, restored, key); err != nil {
		t.Fatalf("restore: %v", err)
	}
	m, ok := restored.GetModule(created.ID)
	if !ok || m.Type != domain.ModuleChecklist {
		t.Fatalf("expected module restored, got %+v %v", m, ok)
	}
}

func TestExportedKeysAreUniqueAndListedInOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	archiver := New(blobmemory.New())
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	archiver.SetNowFunc(func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	})

	first, err := archiver.Export(ctx, store)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	second, err := archiver.Export(ctx, store)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if first == second {
		t.Fatalf("expected unique archive keys")
	}

	keys, err := archiver.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 || keys[0] != first || keys[1] != second {
		t.Fatalf("unexpected listing %v", keys)
	}
}

func TestRestoreMissingArchiveFails(t *testing.T) {
	archiver := New(blobmemory.New())
	if err := archiver.Restore(context.Background(), memory.NewStore(nil), "snapshots/absent.json"); err == nil {
		t.Fatalf("expected error for missing archive")
	}
}
