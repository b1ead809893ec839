// Package archive exports workspace snapshots to a blob store and restores
// them.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	blobcore "deskcore/internal/blob/core"
	"deskcore/internal/infra/persistence/memory"
)

// snapshotter is satisfied by stores that can dump and load their full state.
// All persistence backends embed the memory store and therefore implement it.
type snapshotter interface {
	ExportState() memory.Snapshot
	ImportState(memory.Snapshot)
}

// keyPrefix groups archived snapshots inside the blob store.
const keyPrefix = "snapshots/"

// Archiver writes workspace snapshots into a blob store as immutable,
// timestamped JSON documents.
type Archiver struct {
	blobs blobcore.Store
	nowFn func() time.Time
}

// New returns an archiver over the blob store.
func New(blobs blobcore.Store) *Archiver {
	return &Archiver{blobs: blobs, nowFn: time.Now}
}

// SetNowFunc overrides the clock used for archive keys, for tests.
func (a *Archiver) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		a.nowFn = fn
	}
}

// Export serializes the store's full state and writes it under a timestamped
// key. The blob key of the new archive is returned.
func (a *Archiver) Export(ctx context.Context, store snapshotter) (string, error) {
	snapshot := store.ExportState()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	key := keyPrefix + a.nowFn().UTC().Format("20060102T150405.000000000Z") + ".json"
	_, err = a.blobs.Put(ctx, key, strings.NewReader(string(payload)), blobcore.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"modules": fmt.Sprintf("%d", len(snapshot.Modules))},
	})
	if err != nil {
		return "", fmt.Errorf("write archive %s: %w", key, err)
	}
	return key, nil
}

// Restore replaces the store's state with the archived snapshot at key.
func (a *Archiver) Restore(ctx context.Context, store snapshotter, key string) error {
	_, rc, err := a.blobs.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read archive %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	var snapshot memory.Snapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode archive %s: %w", key, err)
	}
	store.ImportState(snapshot)
	return nil
}

// List returns the keys of stored archives, oldest first.
func (a *Archiver) List(ctx context.Context) ([]string, error) {
	infos, err := a.blobs.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	return keys, nil
}
