package impl

import (
	"sort"

	"spotfence/internal/domain/entity"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Prioritizer decides which candidates get one of the platform's limited
// region slots. It is re-run on every synchronization rather than maintained
// incrementally: candidate sets are small (at most hundreds) and a full sort
// is cheap next to the platform calls that follow.
type Prioritizer struct{}

// NewPrioritizer creates a new prioritizer instance.
func NewPrioritizer() *Prioritizer {
	return &Prioritizer{}
}

// Prioritize returns at most maxCount candidates. Under budget the input is
// returned unchanged, preserving order, so an unchanged candidate set never
// causes reconciliation churn. Over budget with a known user location the
// nearest candidates by great-circle distance win; without a location the
// first maxCount are kept in existing order, which is the documented
// degraded behavior when no distance data exists.
func (p *Prioritizer) Prioritize(candidates []entity.MonitorableSpot, userLocation *orb.Point, maxCount int) []entity.MonitorableSpot {
	if maxCount < 0 {
		maxCount = 0
	}
	if len(candidates) <= maxCount {
		return candidates
	}

	if userLocation == nil {
		return candidates[:maxCount]
	}

	ranked := make([]entity.MonitorableSpot, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		di := geo.DistanceHaversine(*userLocation, ranked[i].Coordinate)
		dj := geo.DistanceHaversine(*userLocation, ranked[j].Coordinate)

		return di < dj
	})

	return ranked[:maxCount]
}
