// Package impl contains the implementations of the use case interfaces.
package impl

import (
	"spotfence/internal/domain/entity"
)

// CandidateFilter selects the spots eligible for region monitoring. It is a
// filter, not a validator: spots failing a predicate are silently dropped,
// and validation feedback stays with the UI layer.
type CandidateFilter struct{}

// NewCandidateFilter creates a new candidate filter instance.
func NewCandidateFilter() *CandidateFilter {
	return &CandidateFilter{}
}

// FilterEligible returns the spots that may be monitored: non-empty stable
// identifier, notification opted in, and a radius inside the platform
// bounds. Out-of-bounds radii are excluded, never clamped.
func (f *CandidateFilter) FilterEligible(spots []*entity.Spot) []entity.MonitorableSpot {
	eligible := make([]entity.MonitorableSpot, 0, len(spots))
	for _, spot := range spots {
		if spot == nil || !f.isEligible(spot) {
			continue
		}

		eligible = append(eligible, entity.MonitorableSpot{
			ID:           spot.ID,
			DisplayName:  spot.Name,
			Coordinate:   spot.Point(),
			RadiusMeters: spot.NotificationRadiusMeters,
		})
	}

	return eligible
}

func (f *CandidateFilter) isEligible(spot *entity.Spot) bool {
	if spot.ID == "" {
		return false
	}
	if !spot.WantsNearbyNotification {
		return false
	}

	return entity.RadiusInBounds(spot.NotificationRadiusMeters)
}
