package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// EnvTier snapshots whole collections into process environment variables.
// On hosting platforms that recycle the filesystem but keep the process
// environment alive across soft restarts this is the cheapest recovery path.
// It is never authoritative.
type EnvTier struct {
	prefix string
	mu     sync.Mutex
}

// NewEnvTier creates an environment-snapshot tier. Variables are named
// <prefix><UPPERCASED_COLLECTION>.
func NewEnvTier(prefix string) *EnvTier {
	if prefix == "" {
		prefix = "REFPAY_SNAPSHOT_"
	}
	return &EnvTier{prefix: prefix}
}

func (t *EnvTier) Name() string        { return "env" }
func (t *EnvTier) Authoritative() bool { return false }

func (t *EnvTier) varName(collection string) string {
	return t.prefix + strings.ToUpper(collection)
}

func (t *EnvTier) ReadAll(_ context.Context, collection string) ([]Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLocked(collection)
}

func (t *EnvTier) readLocked(collection string) ([]Record, error) {
	val, ok := os.LookupEnv(t.varName(collection))
	if !ok || val == "" {
		return nil, ErrNotFound
	}
	raw, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("corrupt env snapshot for %q: %w", collection, err)
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("corrupt env snapshot for %q: %w", collection, err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

func (t *EnvTier) WriteAll(_ context.Context, collection string, records []Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeLocked(collection, records)
}

func (t *EnvTier) writeLocked(collection string, records []Record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %q snapshot: %w", collection, err)
	}
	return os.Setenv(t.varName(collection), base64.StdEncoding.EncodeToString(raw))
}

func (t *EnvTier) UpsertOne(_ context.Context, collection string, rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.readLocked(collection)
	if err != nil && err != ErrNotFound {
		return err
	}
	records = replaceOrAppend(records, rec)
	return t.writeLocked(collection, records)
}

// replaceOrAppend swaps the record with a matching key or appends it.
func replaceOrAppend(records []Record, rec Record) []Record {
	for i := range records {
		if records[i].Key == rec.Key {
			records[i] = rec
			return records
		}
	}
	return append(records, rec)
}
