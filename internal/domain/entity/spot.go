// Package entity contains the core business objects of the project.
package entity

import (
	"github.com/paulmach/orb"
)

const (
	// MinRegionRadiusMeters is the smallest radius the platform region API accepts.
	MinRegionRadiusMeters = 50
	// MaxRegionRadiusMeters is the largest radius the platform region API accepts.
	MaxRegionRadiusMeters = 50000
)

// Spot is a snapshot of a user-saved point of interest as reported by the
// spot store. The engine never mutates spots; it only derives monitoring
// state from them.
type Spot struct {
	ID                       string  `json:"id"`
	Name                     string  `json:"name"`
	Latitude                 float64 `json:"latitude"`
	Longitude                float64 `json:"longitude"`
	NotificationRadiusMeters float64 `json:"notification_radius_meters"`
	WantsNearbyNotification  bool    `json:"wants_nearby_notification"`
}

// Point returns the spot coordinate as an orb point (lon, lat order).
func (s *Spot) Point() orb.Point {
	return orb.Point{s.Longitude, s.Latitude}
}

// MonitorableSpot is a spot that passed eligibility filtering and is a
// candidate for platform region monitoring. Derived, never persisted.
type MonitorableSpot struct {
	ID           string
	DisplayName  string
	Coordinate   orb.Point
	RadiusMeters float64
}

// RadiusInBounds reports whether a radius is acceptable for the platform
// region API. Spots outside the bounds are excluded, never clamped.
func RadiusInBounds(radiusMeters float64) bool {
	return radiusMeters >= MinRegionRadiusMeters && radiusMeters <= MaxRegionRadiusMeters
}
