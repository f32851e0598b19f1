package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileTier snapshots whole collections into JSON files under a data
// directory. Like the env tier it is recovery-only, never authoritative.
type FileTier struct {
	dir string
	mu  sync.Mutex
}

// NewFileTier creates a file-snapshot tier rooted at dir, creating the
// directory if needed.
func NewFileTier(dir string) (*FileTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	return &FileTier{dir: dir}, nil
}

func (t *FileTier) Name() string        { return "file" }
func (t *FileTier) Authoritative() bool { return false }

func (t *FileTier) path(collection string) string {
	return filepath.Join(t.dir, collection+".json")
}

func (t *FileTier) ReadAll(_ context.Context, collection string) ([]Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLocked(collection)
}

func (t *FileTier) readLocked(collection string) ([]Record, error) {
	raw, err := os.ReadFile(t.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %q snapshot: %w", collection, err)
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("corrupt file snapshot for %q: %w", collection, err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

func (t *FileTier) WriteAll(_ context.Context, collection string, records []Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeLocked(collection, records)
}

func (t *FileTier) writeLocked(collection string, records []Record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %q snapshot: %w", collection, err)
	}
	// Write-then-rename so a crash mid-write never corrupts the snapshot.
	tmp := t.path(collection) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %q snapshot: %w", collection, err)
	}
	if err := os.Rename(tmp, t.path(collection)); err != nil {
		return fmt.Errorf("failed to replace %q snapshot: %w", collection, err)
	}
	return nil
}

func (t *FileTier) UpsertOne(_ context.Context, collection string, rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.readLocked(collection)
	if err != nil && err != ErrNotFound {
		return err
	}
	return t.writeLocked(collection, replaceOrAppend(records, rec))
}
