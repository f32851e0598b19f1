package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryTier keeps collections in process memory. In production it sits at
// the bottom of the rank as the in-memory default of last resort; tests run
// entire tier stacks out of it.
type MemoryTier struct {
	name          string
	authoritative bool

	mu   sync.RWMutex
	data map[string]map[string]Record
}

// NewMemoryTier creates an in-memory tier. Tests pass authoritative=true so
// writes can be acknowledged without a database.
func NewMemoryTier(name string, authoritative bool) *MemoryTier {
	return &MemoryTier{
		name:          name,
		authoritative: authoritative,
		data:          make(map[string]map[string]Record),
	}
}

func (t *MemoryTier) Name() string        { return t.name }
func (t *MemoryTier) Authoritative() bool { return t.authoritative }

func (t *MemoryTier) ReadAll(_ context.Context, collection string) ([]Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	coll := t.data[collection]
	if len(coll) == 0 {
		return nil, ErrNotFound
	}
	records := make([]Record, 0, len(coll))
	for _, rec := range coll {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

func (t *MemoryTier) WriteAll(_ context.Context, collection string, records []Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	coll := make(map[string]Record, len(records))
	for _, rec := range records {
		coll[rec.Key] = rec
	}
	t.data[collection] = coll
	return nil
}

func (t *MemoryTier) UpsertOne(_ context.Context, collection string, rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.data[collection] == nil {
		t.data[collection] = make(map[string]Record)
	}
	t.data[collection][rec.Key] = rec
	return nil
}

var _ Tier = (*MemoryTier)(nil)
var _ Tier = (*EnvTier)(nil)
var _ Tier = (*FileTier)(nil)
var _ Tier = (*PostgresTier)(nil)
var _ Tier = (*MongoTier)(nil)
