// Package repositories provides the data access layer. Every entity is
// persisted through the tiered store as keyed JSON records; repositories
// only add typing, key layout, and not-found translation on top.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"refpay/internal/storage"
)

var (
	ErrAgentNotFound      = errors.New("agent not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrCommissionNotFound = errors.New("commission not found")
	ErrPayoutNotFound     = errors.New("payout not found")
	ErrSettingNotFound    = errors.New("setting not found")
)

// encodeRecord marshals an entity into a keyed storage record.
func encodeRecord(key string, v interface{}) (storage.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return storage.Record{}, fmt.Errorf("failed to encode record %q: %w", key, err)
	}
	return storage.Record{Key: key, Data: data}, nil
}

// decodeAll unmarshals every record of a collection into a typed slice.
func decodeAll[T any](records []storage.Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode record %q: %w", rec.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// readCollection loads a whole collection, treating an empty store as an
// empty slice rather than an error.
func readCollection[T any](ctx context.Context, store *storage.TieredStore, collection string) ([]T, error) {
	records, err := store.Read(ctx, collection)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decodeAll[T](records)
}

// upsertOne writes a single entity through the tier stack.
func upsertOne(ctx context.Context, store *storage.TieredStore, collection, key string, v interface{}) error {
	rec, err := encodeRecord(key, v)
	if err != nil {
		return err
	}
	return store.UpsertOne(ctx, collection, rec)
}
