// Package storage implements the ranked multi-tier persistence layer.
//
// Every collection is a set of keyed JSON documents replicated across an
// ordered list of backends: Postgres, MongoDB, a process-environment
// snapshot, a local-file snapshot, and an in-memory fallback. Reads consult
// tiers in rank order and converge lower tiers on success; writes are only
// acknowledged once the highest-ranked reachable tier has accepted them.
package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names
const (
	CollectionAgents      = "agents"
	CollectionVisits      = "referral_visits"
	CollectionOrders      = "orders"
	CollectionCommissions = "commissions"
	CollectionPayouts     = "payouts"
	CollectionSettings    = "settings"
)

var (
	// ErrNotFound means no tier holds data for the collection (or key).
	ErrNotFound = errors.New("storage: not found")
	// ErrUnavailable means no tier could serve the request, or the
	// authoritative tier rejected a write.
	ErrUnavailable = errors.New("storage: no tier available")
)

// Record is one keyed JSON document within a collection.
type Record struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// Tier is one backend in the ranked fallback list.
//
// ReadAll returns ErrNotFound when the tier holds no data for the
// collection; any other error counts as a tier failure.
//
// Authoritative tiers (the database backends) are allowed to acknowledge
// writes on behalf of the store. Snapshot tiers (environment, file, memory)
// exist only so a restarted process can recover state; their ack never makes
// a write successful.
type Tier interface {
	Name() string
	Authoritative() bool
	ReadAll(ctx context.Context, collection string) ([]Record, error)
	WriteAll(ctx context.Context, collection string, records []Record) error
	UpsertOne(ctx context.Context, collection string, rec Record) error
}
