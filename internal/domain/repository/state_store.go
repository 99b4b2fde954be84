package repository

import (
	"context"
	"time"
)

// RegionBookkeepingStore persists the engine's id -> display-name map of
// regions it believes are actively monitored. It is the source of the
// human-readable name when a region-entry event fires in a context where the
// spot list may be stale or unavailable.
//
// Entries are flushed on every mutation; there is no batching. The store is
// not transactionally coupled to the notification ledger.
type RegionBookkeepingStore interface {
	// All returns the full bookkeeping map.
	All(ctx context.Context) (map[string]string, error)

	// DisplayName looks up the recorded name for a spot id. The second
	// return reports presence.
	DisplayName(ctx context.Context, spotID string) (string, bool, error)

	// Upsert records or updates the name for a spot id.
	Upsert(ctx context.Context, spotID, displayName string) error

	// Remove deletes the entry for a spot id. Removing an absent id is not
	// an error.
	Remove(ctx context.Context, spotID string) error

	// Clear empties the map. Used by full teardown.
	Clear(ctx context.Context) error
}

// NotificationLedgerStore persists the id -> last-fired-timestamp map used to
// throttle repeat proximity alerts. The ledger deliberately survives
// permission teardown so cooldown history outlives transient permission loss.
type NotificationLedgerStore interface {
	// LastFired returns the most recent delivery time for a spot id. The
	// second return reports presence.
	LastFired(ctx context.Context, spotID string) (time.Time, bool, error)

	// RecordFired stores the delivery time for a spot id.
	RecordFired(ctx context.Context, spotID string, firedAt time.Time) error

	// PruneOlderThan removes entries with a timestamp before the cutoff and
	// returns how many were removed. Pruning bounds storage growth only; the
	// ShouldFire comparison is self-sufficient without it.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
