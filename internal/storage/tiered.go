package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// TieredStore fans reads and writes across a ranked list of tiers.
//
// The first tier that is still reachable is the authoritative one: a write
// only succeeds once it acks, and lower tiers are updated best-effort in the
// background. A tier that fails is marked unavailable for the process
// lifetime so a dead backend cannot turn into a retry storm.
type TieredStore struct {
	tiers []Tier

	mu          sync.RWMutex
	unavailable map[string]bool

	wg sync.WaitGroup
}

// NewTieredStore creates a store over tiers listed in rank order, highest
// first. At least one tier is required.
func NewTieredStore(tiers ...Tier) *TieredStore {
	if len(tiers) == 0 {
		panic("at least one storage tier is required")
	}
	return &TieredStore{
		tiers:       tiers,
		unavailable: make(map[string]bool),
	}
}

// Read returns the records of the first non-empty tier in rank order and
// converges all lower-ranked tiers in the background. It returns ErrNotFound
// when every reachable tier is empty and ErrUnavailable when no tier could
// be consulted at all.
func (s *TieredStore) Read(ctx context.Context, collection string) ([]Record, error) {
	consulted := false
	for i, tier := range s.tiers {
		if s.isUnavailable(tier) {
			continue
		}
		records, err := tier.ReadAll(ctx, collection)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				consulted = true
				continue
			}
			s.markUnavailable(tier, err)
			continue
		}
		consulted = true
		if i > 0 {
			log.Printf("storage: degraded read of %q served by tier %q", collection, tier.Name())
		}
		s.writeThrough(collection, records, i+1)
		return records, nil
	}
	if !consulted {
		return nil, fmt.Errorf("read %q: %w", collection, ErrUnavailable)
	}
	return nil, ErrNotFound
}

// WriteAll replaces the collection contents in every tier. The call fails
// unless the highest-ranked reachable tier accepts the write; failures in
// lower tiers are logged and swallowed, since those tiers exist only for
// crash-recovery durability.
func (s *TieredStore) WriteAll(ctx context.Context, collection string, records []Record) error {
	return s.write(ctx, collection, func(t Tier, ctx context.Context) error {
		return t.WriteAll(ctx, collection, records)
	})
}

// UpsertOne inserts or replaces a single record in every tier under the same
// acknowledgement policy as WriteAll.
func (s *TieredStore) UpsertOne(ctx context.Context, collection string, rec Record) error {
	return s.write(ctx, collection, func(t Tier, ctx context.Context) error {
		return t.UpsertOne(ctx, collection, rec)
	})
}

// Seed writes defaults for a collection that no tier has data for. Writes go
// to every tier sequentially; the first tier must accept, later failures are
// logged but not fatal. Returns the existing records when any tier already
// holds the collection.
func (s *TieredStore) Seed(ctx context.Context, collection string, defaults []Record) ([]Record, error) {
	existing, err := s.Read(ctx, collection)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	seeded := false
	for _, tier := range s.tiers {
		if s.isUnavailable(tier) {
			continue
		}
		if err := tier.WriteAll(ctx, collection, defaults); err != nil {
			log.Printf("storage: seeding %q into tier %q failed: %v", collection, tier.Name(), err)
			s.markUnavailable(tier, err)
			continue
		}
		seeded = true
	}
	if !seeded {
		return nil, fmt.Errorf("seed %q: %w", collection, ErrUnavailable)
	}
	return defaults, nil
}

// Health reports per-tier availability, keyed by tier name.
func (s *TieredStore) Health() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	health := make(map[string]bool, len(s.tiers))
	for _, tier := range s.tiers {
		health[tier.Name()] = !s.unavailable[tier.Name()]
	}
	return health
}

// Flush blocks until all in-flight background write-throughs finish. Called
// on shutdown and by tests.
func (s *TieredStore) Flush() {
	s.wg.Wait()
}

func (s *TieredStore) write(ctx context.Context, collection string, op func(Tier, context.Context) error) error {
	acked := false
	var primaryErr error
	for _, tier := range s.tiers {
		if s.isUnavailable(tier) {
			continue
		}
		if tier.Authoritative() && !acked {
			// Highest-ranked reachable database tier: synchronous,
			// and its verdict is the caller's verdict.
			if err := op(tier, ctx); err != nil {
				primaryErr = fmt.Errorf("write %q to tier %q: %w", collection, tier.Name(), err)
				s.markUnavailable(tier, err)
				continue
			}
			acked = true
			continue
		}
		// Snapshot tiers (and database tiers behind the primary) get the
		// write regardless, so restart recovery stays possible even when
		// the overall operation is about to be reported as failed.
		s.asyncWrite(tier, collection, op)
	}
	if !acked {
		if primaryErr != nil {
			return primaryErr
		}
		return fmt.Errorf("write %q: %w", collection, ErrUnavailable)
	}
	return nil
}

func (s *TieredStore) writeThrough(collection string, records []Record, fromRank int) {
	for i := fromRank; i < len(s.tiers); i++ {
		tier := s.tiers[i]
		if s.isUnavailable(tier) {
			continue
		}
		s.asyncWrite(tier, collection, func(t Tier, ctx context.Context) error {
			return t.WriteAll(ctx, collection, records)
		})
	}
}

func (s *TieredStore) asyncWrite(tier Tier, collection string, op func(Tier, context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := op(tier, context.Background()); err != nil {
			log.Printf("storage: background write of %q to tier %q failed: %v", collection, tier.Name(), err)
		}
	}()
}

func (s *TieredStore) isUnavailable(tier Tier) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unavailable[tier.Name()]
}

func (s *TieredStore) markUnavailable(tier Tier, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unavailable[tier.Name()] {
		log.Printf("storage: tier %q marked unavailable: %v", tier.Name(), err)
	}
	s.unavailable[tier.Name()] = true
}
