package archive

import (
	"context"
	"time"

	"oblige-hq/warden/pkg/model"
)

// Query defines filter parameters for querying archived violations.
type Query struct {
	ID        string         `json:"id,omitempty"`
	RuleID    string         `json:"rule_id,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	EventType string         `json:"event_type,omitempty"`
	Severity  model.Severity `json:"severity,omitempty"`

	// Since and Until bound the detection timestamp (inclusive).
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`

	// Pagination; Limit <= 0 means no limit.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Storage is a queryable mirror of the violation ledger. The ledger remains
// the sole source of truth; an archive can always be rebuilt from it.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists one violation. Storing the same id twice is a no-op
	// upsert, so ledger replays are safe.
	Store(ctx context.Context, v model.Violation) error

	// Query returns archived violations matching the filters, ordered by
	// detection time ascending.
	Query(ctx context.Context, q Query) ([]model.Violation, error)

	// Count returns the number of violations matching the filters.
	Count(ctx context.Context, q Query) (int64, error)

	// Delete removes matching violations and returns how many were
	// removed. Used by retention pruning only; the ledger is never pruned.
	Delete(ctx context.Context, q Query) (int64, error)

	// Close releases backend resources.
	Close() error
}
