package entity

import (
	"time"
)

// RegionEvent is a region-entry callback reported by the platform location
// subsystem for a monitored spot.
type RegionEvent struct {
	SpotID     string    `json:"spot_id"`
	OccurredAt time.Time `json:"occurred_at"`
	// Foregrounded records whether the app was in the foreground at the
	// moment the event fired. It selects the in-app alert path in addition
	// to the system notification, never instead of it.
	Foregrounded bool `json:"foregrounded"`
}

// MonitoredRegion is the engine's own bookkeeping record of a region it
// believes is active, reconciled against the platform's live set on every
// synchronization pass.
type MonitoredRegion struct {
	SpotID      string `json:"spot_id"`
	DisplayName string `json:"display_name"`
}

// LifecyclePhase names an app lifecycle transition reported by the device.
type LifecyclePhase string

const (
	PhaseWillEnterForeground LifecyclePhase = "willEnterForeground"
	PhaseDidBecomeActive     LifecyclePhase = "didBecomeActive"
	PhaseDidEnterBackground  LifecyclePhase = "didEnterBackground"
)

// Valid reports whether the value is a known lifecycle phase.
func (p LifecyclePhase) Valid() bool {
	switch p {
	case PhaseWillEnterForeground, PhaseDidBecomeActive, PhaseDidEnterBackground:
		return true
	default:
		return false
	}
}
