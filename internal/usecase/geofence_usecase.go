// Package usecase defines the interfaces for the application's use cases.
package usecase

import (
	"context"

	"spotfence/internal/domain/entity"

	"github.com/paulmach/orb"
)

// MonitoredSpotView is the derived "is this spot eligible/monitored" read
// model exposed to the UI layer. It is computed per request, never stored.
type MonitoredSpotView struct {
	SpotID      string `json:"spot_id"`
	DisplayName string `json:"display_name"`
	Eligible    bool   `json:"eligible"`
	Monitored   bool   `json:"monitored"`
}

// GeofenceUsecase is the geofence reconciliation engine: it keeps the
// platform's monitored-region set aligned with the user's eligible spots and
// turns region-entry events into throttled proximity notifications.
type GeofenceUsecase interface {
	// SynchronizeNow runs one reconciliation pass. It never fails loudly:
	// permission and platform problems degrade to "monitoring fewer spots
	// than desired" and are logged. A call arriving while a pass is in
	// flight is dropped, not queued; the caller may only assume that some
	// pass with recent inputs eventually runs.
	SynchronizeNow(ctx context.Context)

	// SetGloballyEnabled flips the master switch and reconciles.
	SetGloballyEnabled(ctx context.Context, enabled bool)

	// MonitoredSpots returns the derived monitoring read model.
	MonitoredSpots(ctx context.Context) ([]*MonitoredSpotView, error)

	// RequestPermissionUpgrade asks the platform for a location grant: the
	// while-in-use grant on a first-ever request, the always grant when
	// upgrading. It waits for the user's decision (bounded) and returns the
	// resulting state. It never escalates on its own.
	RequestPermissionUpgrade(ctx context.Context, wantAlways bool) (entity.AuthorizationState, error)

	// HandleRegionEntry processes a region-entry callback: bookkeeping
	// lookup, throttle check, notification delivery and, when the app is
	// foregrounded, an in-app alert event.
	HandleRegionEntry(ctx context.Context, event *entity.RegionEvent)

	// ObserveAuthorization applies an authorization-change callback. A
	// regression away from "always" tears down all monitoring.
	ObserveAuthorization(ctx context.Context, state entity.AuthorizationState)

	// ObserveLocation applies a location-update callback. Movement beyond
	// the significant-change threshold flags that re-prioritization should
	// be considered on the next synchronize; it does not itself trigger one.
	ObserveLocation(ctx context.Context, location orb.Point)

	// ObserveLifecycle applies an app lifecycle transition (ledger pruning
	// and a fresh location fix on foreground/active).
	ObserveLifecycle(ctx context.Context, phase entity.LifecyclePhase)
}
