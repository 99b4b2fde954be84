package impl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"spotfence/config"
	"spotfence/internal/domain/entity"
	"spotfence/internal/domain/repository"
	"spotfence/internal/domain/service"
	"spotfence/internal/infra/metrics"
	"spotfence/internal/usecase"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// GeofenceManager is the reconciliation engine. One explicitly-constructed
// instance owns all mutable engine state; platform callbacks reach it only
// after the lifecycle bridge has redispatched them onto its serialized
// context, and direct API calls are serialized by the same mutex.
type GeofenceManager struct {
	cfg         *config.Config
	logger      *slog.Logger
	spots       repository.SpotRepository
	bookkeeping repository.RegionBookkeepingStore
	gate        *PermissionGate
	throttle    *NotificationThrottle
	filter      *CandidateFilter
	prioritizer *Prioritizer
	monitor     service.RegionMonitor
	location    service.LocationProvider
	notifier    service.ProximityNotifier
	alerts      service.AlertPublisher

	// syncInFlight implements the at-most-one-in-flight, drop-newest policy.
	// It is intentionally not a correctness lock: a dropped call is healed
	// by the next natural trigger.
	syncInFlight atomic.Bool

	mu sync.Mutex
	// globallyEnabled is the master switch snapshot for the current run.
	globallyEnabled bool
	// applied remembers the parameters last accepted by the platform per
	// region id. A desired spot whose parameters are unchanged and whose
	// region is still live needs no platform calls at all; after a process
	// restart the map is empty and the first pass re-applies everything.
	applied map[string]entity.MonitorableSpot
	// lastPrioritizedAt remembers where the user was when the desired set
	// was last computed, for the significant-move advisory.
	lastPrioritizedAt *orb.Point
	// reprioritizeAdvised is advisory bookkeeping only; it never triggers a
	// synchronization by itself.
	reprioritizeAdvised bool
}

// NewGeofenceManager creates the engine instance.
func NewGeofenceManager(
	cfg *config.Config,
	logger *slog.Logger,
	spots repository.SpotRepository,
	bookkeeping repository.RegionBookkeepingStore,
	gate *PermissionGate,
	throttle *NotificationThrottle,
	monitor service.RegionMonitor,
	location service.LocationProvider,
	notifier service.ProximityNotifier,
	alerts service.AlertPublisher,
) usecase.GeofenceUsecase {
	return &GeofenceManager{
		cfg:             cfg,
		logger:          logger,
		spots:           spots,
		bookkeeping:     bookkeeping,
		gate:            gate,
		throttle:        throttle,
		filter:          NewCandidateFilter(),
		prioritizer:     NewPrioritizer(),
		monitor:         monitor,
		location:        location,
		notifier:        notifier,
		alerts:          alerts,
		globallyEnabled: cfg.Geofence.GloballyEnabled,
		applied:         make(map[string]entity.MonitorableSpot),
	}
}

// SynchronizeNow runs one reconciliation pass. Calls arriving while a pass
// is in flight are dropped, not queued: every natural trigger recurs, so the
// next one re-invokes synchronization with fresher inputs anyway.
func (m *GeofenceManager) SynchronizeNow(ctx context.Context) {
	if !m.syncInFlight.CompareAndSwap(false, true) {
		metrics.SyncDroppedTotal.Inc()
		m.logger.Debug("synchronization already in flight, dropping call")

		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// LIFO defers: the in-flight flag resets before the mutex releases, so a
	// caller that waited on the mutex always gets a fresh pass.
	defer m.syncInFlight.Store(false)

	m.synchronize(ctx)
}

// synchronize is the reconciliation state machine. Callers hold m.mu.
func (m *GeofenceManager) synchronize(ctx context.Context) {
	metrics.SyncRunsTotal.Inc()

	if !m.globallyEnabled {
		m.teardownAll(ctx, "globally disabled")

		return
	}

	auth := m.gate.CurrentAuthorization()
	if !auth.AllowsMonitoring() {
		if m.activeRegionCount(ctx) > 0 {
			m.teardownAll(ctx, "authorization regressed")
		}

		return
	}

	snapshot, err := m.spots.Snapshot(ctx)
	if err != nil {
		m.logger.Error("spot snapshot unavailable, keeping current monitoring set", slog.Any("error", err))

		return
	}

	candidates := m.filter.FilterEligible(snapshot)

	var userLocation *orb.Point
	if loc, ok := m.location.LastKnownLocation(ctx); ok {
		userLocation = &loc
	}

	desired := m.prioritizer.Prioritize(candidates, userLocation, m.cfg.Geofence.MaxMonitoredRegions)

	currentIDs, err := m.monitor.ActiveRegionIDs(ctx)
	if err != nil {
		m.logger.Error("platform region set unavailable, skipping pass", slog.Any("error", err))

		return
	}

	desiredIDs := make(map[string]struct{}, len(desired))
	started := 0
	for _, spot := range desired {
		desiredIDs[spot.ID] = struct{}{}
		if m.startRegion(ctx, spot, currentIDs) {
			started++
		}
	}

	stopped := 0
	for id := range currentIDs {
		if _, wanted := desiredIDs[id]; wanted {
			continue
		}
		m.stopRegion(ctx, id)
		stopped++
	}

	m.lastPrioritizedAt = userLocation
	m.reprioritizeAdvised = false
	metrics.ActiveRegions.Set(float64(m.activeRegionCount(ctx)))

	m.logger.Info("synchronization pass complete",
		slog.Int("candidates", len(candidates)),
		slog.Int("desired", len(desired)),
		slog.Int("started", started),
		slog.Int("stopped", stopped),
	)
}

// startRegion reconciles one desired spot. A region that is still live with
// unchanged parameters needs no platform calls, keeping repeated passes over
// unchanged inputs free of start/stop churn. Otherwise the update is
// clean-slate: the platform treats region parameters as immutable after
// creation, so an existing region with the same id is stopped before the new
// one starts. Bookkeeping is only written after the platform accepted the
// start, so a rejection never records a success that didn't happen.
func (m *GeofenceManager) startRegion(ctx context.Context, spot entity.MonitorableSpot, currentIDs map[string]struct{}) bool {
	_, live := currentIDs[spot.ID]
	if prev, known := m.applied[spot.ID]; known && live &&
		prev.Coordinate == spot.Coordinate && prev.RadiusMeters == spot.RadiusMeters {
		if prev.DisplayName != spot.DisplayName {
			// A renamed spot keeps its region; only the bookkeeping entry
			// needs refreshing.
			if err := m.bookkeeping.Upsert(ctx, spot.ID, spot.DisplayName); err != nil {
				m.logger.Error("failed to refresh region bookkeeping",
					slog.String("spot_id", spot.ID),
					slog.Any("error", err),
				)
			}
			m.applied[spot.ID] = spot
		}

		return false
	}

	if !m.monitor.MonitoringAvailable(ctx) {
		m.logger.Warn("region monitoring unavailable on this device", slog.String("spot_id", spot.ID))

		return false
	}

	if live {
		if err := m.monitor.StopMonitoring(ctx, spot.ID); err != nil {
			m.logger.Warn("failed to stop region before update",
				slog.String("spot_id", spot.ID),
				slog.Any("error", err),
			)
		}
		metrics.RegionStopsTotal.Inc()
	}

	if err := m.monitor.StartMonitoring(ctx, spot.ID, spot.Coordinate, spot.RadiusMeters); err != nil {
		metrics.RegionStartFailuresTotal.Inc()
		delete(m.applied, spot.ID)
		m.logger.Warn("platform rejected region start",
			slog.String("spot_id", spot.ID),
			slog.Any("error", err),
		)

		return false
	}
	metrics.RegionStartsTotal.Inc()
	m.applied[spot.ID] = spot

	if err := m.bookkeeping.Upsert(ctx, spot.ID, spot.DisplayName); err != nil {
		m.logger.Error("failed to record region bookkeeping",
			slog.String("spot_id", spot.ID),
			slog.Any("error", err),
		)
	}

	return true
}

func (m *GeofenceManager) stopRegion(ctx context.Context, spotID string) {
	if err := m.monitor.StopMonitoring(ctx, spotID); err != nil {
		m.logger.Warn("failed to stop region",
			slog.String("spot_id", spotID),
			slog.Any("error", err),
		)
	}
	metrics.RegionStopsTotal.Inc()
	delete(m.applied, spotID)

	if err := m.bookkeeping.Remove(ctx, spotID); err != nil {
		m.logger.Error("failed to remove region bookkeeping",
			slog.String("spot_id", spotID),
			slog.Any("error", err),
		)
	}
}

// teardownAll stops every monitored region and clears the bookkeeping map.
// The notification ledger is left alone: cooldown history must survive
// permission churn. Callers hold m.mu.
func (m *GeofenceManager) teardownAll(ctx context.Context, reason string) {
	metrics.TeardownsTotal.Inc()

	currentIDs, err := m.monitor.ActiveRegionIDs(ctx)
	if err != nil {
		m.logger.Error("teardown could not list active regions", slog.Any("error", err))
		currentIDs = map[string]struct{}{}
	}

	for id := range currentIDs {
		if err := m.monitor.StopMonitoring(ctx, id); err != nil {
			m.logger.Warn("teardown failed to stop region",
				slog.String("spot_id", id),
				slog.Any("error", err),
			)
		}
		metrics.RegionStopsTotal.Inc()
	}

	if err := m.bookkeeping.Clear(ctx); err != nil {
		m.logger.Error("teardown failed to clear bookkeeping", slog.Any("error", err))
	}
	m.applied = make(map[string]entity.MonitorableSpot)

	metrics.ActiveRegions.Set(0)
	m.logger.Info("monitoring torn down",
		slog.String("reason", reason),
		slog.Int("regions_stopped", len(currentIDs)),
	)
}

func (m *GeofenceManager) activeRegionCount(ctx context.Context) int {
	ids, err := m.monitor.ActiveRegionIDs(ctx)
	if err != nil {
		return 0
	}

	return len(ids)
}

// SetGloballyEnabled flips the master switch and reconciles immediately.
func (m *GeofenceManager) SetGloballyEnabled(ctx context.Context, enabled bool) {
	m.mu.Lock()
	m.globallyEnabled = enabled
	m.mu.Unlock()

	m.SynchronizeNow(ctx)
}

// MonitoredSpots derives the eligibility/monitoring read model from the
// current snapshot and the platform's live region set.
func (m *GeofenceManager) MonitoredSpots(ctx context.Context) ([]*usecase.MonitoredSpotView, error) {
	snapshot, err := m.spots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	activeIDs, err := m.monitor.ActiveRegionIDs(ctx)
	if err != nil {
		return nil, err
	}

	eligibleIDs := make(map[string]struct{})
	for _, spot := range m.filter.FilterEligible(snapshot) {
		eligibleIDs[spot.ID] = struct{}{}
	}

	views := make([]*usecase.MonitoredSpotView, 0, len(snapshot))
	for _, spot := range snapshot {
		_, eligible := eligibleIDs[spot.ID]
		_, monitored := activeIDs[spot.ID]
		views = append(views, &usecase.MonitoredSpotView{
			SpotID:      spot.ID,
			DisplayName: spot.Name,
			Eligible:    eligible,
			Monitored:   monitored,
		})
	}

	return views, nil
}

// RequestPermissionUpgrade delegates to the permission gate. The resulting
// state is returned so the UI can revert its toggle until the user's next
// explicit action; there is no automatic retry.
func (m *GeofenceManager) RequestPermissionUpgrade(ctx context.Context, wantAlways bool) (entity.AuthorizationState, error) {
	return m.gate.RequestUpgrade(ctx, wantAlways)
}

// HandleRegionEntry turns a region-entry callback into at most one
// notification. An id without a bookkeeping entry indicates a
// bookkeeping/platform desync: logged as an anomaly and dropped, never a
// user-visible error.
func (m *GeofenceManager) HandleRegionEntry(ctx context.Context, event *entity.RegionEvent) {
	name, found, err := m.bookkeeping.DisplayName(ctx, event.SpotID)
	if err != nil {
		m.logger.Error("bookkeeping lookup failed for region entry",
			slog.String("spot_id", event.SpotID),
			slog.Any("error", err),
		)

		return
	}
	if !found {
		metrics.BookkeepingAnomaliesTotal.Inc()
		m.logger.Warn("region entry for unknown id, dropping event",
			slog.String("spot_id", event.SpotID),
		)

		return
	}

	if !m.throttle.ShouldFire(ctx, event.SpotID) {
		metrics.NotificationsSuppressedTotal.Inc()

		return
	}

	m.throttle.RecordFired(ctx, event.SpotID)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	data := map[string]string{
		"spot_id":     event.SpotID,
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	if err := m.notifier.Schedule(ctx, event.SpotID, name, fmt.Sprintf("You are near %s", name), data); err != nil {
		m.logger.Error("failed to deliver proximity notification",
			slog.String("spot_id", event.SpotID),
			slog.Any("error", err),
		)
	} else {
		metrics.NotificationsFiredTotal.Inc()
	}

	// The in-app banner is shown additionally when the app was foregrounded
	// at the moment of the event; the throttle governs both paths
	// identically.
	if event.Foregrounded {
		alert := &service.GeofenceAlertEvent{
			AlertID:     uuid.New().String(),
			SpotID:      event.SpotID,
			DisplayName: name,
			OccurredAt:  occurredAt.Format(time.RFC3339),
		}
		if err := m.alerts.PublishAlert(ctx, alert); err != nil {
			m.logger.Warn("failed to publish in-app alert",
				slog.String("spot_id", event.SpotID),
				slog.Any("error", err),
			)
		}
	}
}

// ObserveAuthorization applies an authorization-change callback. A
// regression away from always tears down monitoring synchronously.
func (m *GeofenceManager) ObserveAuthorization(ctx context.Context, state entity.AuthorizationState) {
	if m.gate.Observe(state) {
		m.mu.Lock()
		m.teardownAll(ctx, "authorization regressed from always")
		m.mu.Unlock()
	}
}

// ObserveLocation applies a location-update callback. Movement past the
// significant-change threshold only flags that re-prioritization should be
// considered on the next synchronize call.
func (m *GeofenceManager) ObserveLocation(ctx context.Context, location orb.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastPrioritizedAt == nil {
		return
	}

	if geo.DistanceHaversine(*m.lastPrioritizedAt, location) > m.cfg.Geofence.SignificantMoveMeters {
		m.reprioritizeAdvised = true
	}
}

// ObserveLifecycle applies an app lifecycle transition. Foreground and
// became-active both prune the ledger and request a fresh location fix.
func (m *GeofenceManager) ObserveLifecycle(ctx context.Context, phase entity.LifecyclePhase) {
	switch phase {
	case entity.PhaseWillEnterForeground, entity.PhaseDidBecomeActive:
		m.throttle.PruneExpired(ctx)
		if err := m.location.RequestFix(ctx); err != nil {
			m.logger.Warn("failed to request location fix", slog.Any("error", err))
		}
	case entity.PhaseDidEnterBackground:
		// Nothing to do: regions keep monitoring in the background.
	}
}
