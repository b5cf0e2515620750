package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable means the fast store could not be reached. It is never
// returned for a logical "key exists" outcome.
var ErrUnavailable = errors.New("fast store unavailable")

// DedupStore suppresses repeated events inside a time window.
type DedupStore interface {
	// SetIfAbsent sets key with the given expiry only if it does not exist and
	// reports whether it was set. Connection failures and timeouts are returned
	// wrapped in ErrUnavailable.
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Scope separates the record kinds tracked for counter reconciliation.
type Scope string

const (
	ScopeContent Scope = "content"
	ScopeUser    Scope = "user"
)

// DirtyRecord is a tracked id with the number of mutations seen so far.
type DirtyRecord struct {
	ID    string
	Score float64
}

// DirtyTracker records which records had their counters mutated so the
// reconciler can verify them first.
type DirtyTracker interface {
	MarkDirty(ctx context.Context, scope Scope, ids ...string) error
	TopDirty(ctx context.Context, scope Scope, n int64) ([]DirtyRecord, error)
	// ClearDirty subtracts each record's observed score. Ids marked again
	// after TopDirty keep the remainder and stay tracked.
	ClearDirty(ctx context.Context, scope Scope, records ...DirtyRecord) error
}
