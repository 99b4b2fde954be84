// Package service defines interfaces for external capabilities the engine
// consumes: the device's region-monitoring platform, location fixes,
// notification delivery and alert publishing.
package service

import (
	"context"

	"spotfence/internal/domain/entity"

	"github.com/paulmach/orb"
)

// RegionMonitor is the platform region-monitoring capability set. Start and
// stop are fire-and-forget from the engine's perspective: rejection is
// returned synchronously when known, but delivery outcomes surface through
// later callbacks, never through an awaited completion.
type RegionMonitor interface {
	// StartMonitoring begins monitoring a circular region. The platform
	// treats region parameters as immutable after creation; updates are
	// modeled as stop-then-start by the caller.
	StartMonitoring(ctx context.Context, spotID string, coordinate orb.Point, radiusMeters float64) error

	// StopMonitoring stops monitoring a region. Stopping an unknown id is
	// not an error.
	StopMonitoring(ctx context.Context, spotID string) error

	// ActiveRegionIDs returns the platform's live monitored-region id set.
	ActiveRegionIDs(ctx context.Context) (map[string]struct{}, error)

	// MonitoringAvailable reports whether this device class supports region
	// monitoring at all. Checked once per start attempt.
	MonitoringAvailable(ctx context.Context) bool
}

// PermissionService exposes the platform's location authorization state and
// the two-step request flow: a first-ever request may only ask for the
// weaker while-in-use grant, an upgrade to always requires a separate
// explicit request once while-in-use is held.
type PermissionService interface {
	// CurrentAuthorization snapshots the platform authorization state.
	CurrentAuthorization(ctx context.Context) entity.AuthorizationState

	// RequestWhileInUse asks the platform for the while-in-use grant. The
	// user's decision arrives later via AuthorizationEvents.
	RequestWhileInUse(ctx context.Context) error

	// RequestAlways asks the platform to upgrade to the always grant.
	RequestAlways(ctx context.Context) error

	// AuthorizationEvents returns the stream of authorization-change
	// callbacks. The channel is owned by the implementation and closed on
	// shutdown.
	AuthorizationEvents() <-chan entity.AuthorizationState
}

// LocationProvider exposes the device's location fixes.
type LocationProvider interface {
	// LastKnownLocation returns the most recent fix, or false when no fix
	// has been reported yet.
	LastKnownLocation(ctx context.Context) (orb.Point, bool)

	// RequestFix asks the device for a fresh location fix. The fix arrives
	// later as a location-update callback.
	RequestFix(ctx context.Context) error
}
