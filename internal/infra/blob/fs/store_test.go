package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"deskcore/internal/blob/core"
)

func TestPutGetRoundTripWithSidecar(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	info, err := store.Put(ctx, "snapshots/a.json", strings.NewReader("payload"), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"modules": "2"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" {
		t.Fatalf("expected content etag")
	}

	got, rc, err := store.Get(ctx, "snapshots/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "payload" || got.ContentType != "application/json" || got.Metadata["modules"] != "2" {
		t.Fatalf("round trip mismatch: %q %+v", body, got)
	}
}

func TestPutRejectsExistingAndTraversalKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("v1"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("v2"), core.PutOptions{}); err == nil {
		t.Fatalf("expected create-only rejection")
	}
	for _, key := range []string{"", "../escape", "/abs", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("v"), core.PutOptions{}); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}

func TestListAndDelete(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"snapshots/b", "snapshots/a", "other/c"} {
		if _, err := store.Put(ctx, key, strings.NewReader("v"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "snapshots/a" {
		t.Fatalf("unexpected listing %+v", infos)
	}

	existed, err := store.Delete(ctx, "snapshots/a")
	if err != nil || !existed {
		t.Fatalf("delete: %v %v", existed, err)
	}
	existed, err = store.Delete(ctx, "snapshots/a")
	if err != nil || existed {
		t.Fatalf("second delete should miss: %v %v", existed, err)
	}
	if _, _, err := store.Get(ctx, "snapshots/a"); err == nil {
		t.Fatalf("expected get miss after delete")
	}
}

func TestPresignOnlySupportsGet(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	url, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{})
	if err != nil || url == "" {
		t.Fatalf("expected pseudo url, got %q %v", url, err)
	}
	if _, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{Method: "PUT"}); err == nil {
		t.Fatalf("expected unsupported for PUT")
	}
}
