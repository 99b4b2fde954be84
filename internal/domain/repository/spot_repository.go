// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"spotfence/internal/domain/entity"
)

// SpotRepository exposes the user's saved spots as a pull-based snapshot.
// The spot store itself (sync, conflict handling, auth) is an external
// collaborator; the engine only ever reads a point-in-time snapshot at the
// start of each synchronization pass.
type SpotRepository interface {
	// Snapshot returns the current spot list. The returned slice is owned by
	// the caller.
	Snapshot(ctx context.Context) ([]*entity.Spot, error)

	// ReplaceSnapshot atomically replaces the stored spot list with the
	// device-uploaded one.
	ReplaceSnapshot(ctx context.Context, spots []*entity.Spot) error
}
