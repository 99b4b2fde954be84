// Package devicebridge mirrors the paired device's location subsystem on the
// server side. Commands flow out as fire-and-forget device messages; truth
// flows back in as device reports, so the mirror is eventually consistent
// with the platform and the reconciler self-heals any divergence on its next
// pass.
package devicebridge

import (
	"context"
	"strconv"
	"sync"

	"spotfence/internal/domain/entity"
	"spotfence/internal/domain/service"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const authEventBuffer = 16

// Bridge implements RegionMonitor, PermissionService and LocationProvider
// against the device command channel and the device's state reports.
type Bridge struct {
	commander service.DeviceCommander

	mu            sync.Mutex
	authorization entity.AuthorizationState
	location      orb.Point
	hasLocation   bool
	activeRegions map[string]struct{}
	available     bool
	authEvents    chan entity.AuthorizationState
	closed        bool
}

// New creates a new device bridge instance.
func New(commander service.DeviceCommander) *Bridge {
	return &Bridge{
		commander:     commander,
		authorization: entity.AuthorizationUndetermined,
		activeRegions: make(map[string]struct{}),
		available:     true,
		authEvents:    make(chan entity.AuthorizationState, authEventBuffer),
	}
}

// StartMonitoring commands the device to begin monitoring a region and
// records it in the mirror.
func (b *Bridge) StartMonitoring(ctx context.Context, spotID string, coordinate orb.Point, radiusMeters float64) error {
	payload := map[string]string{
		"spot_id":       spotID,
		"latitude":      strconv.FormatFloat(coordinate.Lat(), 'f', -1, 64),
		"longitude":     strconv.FormatFloat(coordinate.Lon(), 'f', -1, 64),
		"radius_meters": strconv.FormatFloat(radiusMeters, 'f', -1, 64),
	}
	if err := b.commander.SendCommand(ctx, service.CommandStartMonitoring, payload); err != nil {
		return errors.Wrap(err, "start monitoring command")
	}

	b.mu.Lock()
	b.activeRegions[spotID] = struct{}{}
	b.mu.Unlock()

	return nil
}

// StopMonitoring commands the device to stop monitoring a region and drops
// it from the mirror. Stopping an unknown id is not an error.
func (b *Bridge) StopMonitoring(ctx context.Context, spotID string) error {
	if err := b.commander.SendCommand(ctx, service.CommandStopMonitoring, map[string]string{"spot_id": spotID}); err != nil {
		return errors.Wrap(err, "stop monitoring command")
	}

	b.mu.Lock()
	delete(b.activeRegions, spotID)
	b.mu.Unlock()

	return nil
}

// ActiveRegionIDs returns the mirrored monitored-region id set.
func (b *Bridge) ActiveRegionIDs(_ context.Context) (map[string]struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]struct{}, len(b.activeRegions))
	for id := range b.activeRegions {
		out[id] = struct{}{}
	}

	return out, nil
}

// MonitoringAvailable reports the device-reported monitoring capability.
func (b *Bridge) MonitoringAvailable(_ context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.available
}

// CurrentAuthorization returns the mirrored authorization state.
func (b *Bridge) CurrentAuthorization(_ context.Context) entity.AuthorizationState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.authorization
}

// RequestWhileInUse asks the device to prompt for the while-in-use grant.
func (b *Bridge) RequestWhileInUse(ctx context.Context) error {
	return errors.Wrap(b.commander.SendCommand(ctx, service.CommandRequestWhileInUse, nil), "request while-in-use command")
}

// RequestAlways asks the device to prompt for the always grant.
func (b *Bridge) RequestAlways(ctx context.Context) error {
	return errors.Wrap(b.commander.SendCommand(ctx, service.CommandRequestAlways, nil), "request always command")
}

// AuthorizationEvents returns the stream of device-reported authorization
// changes.
func (b *Bridge) AuthorizationEvents() <-chan entity.AuthorizationState {
	return b.authEvents
}

// LastKnownLocation returns the most recent device-reported fix.
func (b *Bridge) LastKnownLocation(_ context.Context) (orb.Point, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.location, b.hasLocation
}

// RequestFix asks the device for a fresh location fix.
func (b *Bridge) RequestFix(ctx context.Context) error {
	return errors.Wrap(b.commander.SendCommand(ctx, service.CommandRequestFix, nil), "request fix command")
}

// ReportAuthorization applies a device authorization report and feeds the
// event stream. A full stream never blocks a report; the mirror state is
// already updated and the reconciler re-reads it on its next pass.
func (b *Bridge) ReportAuthorization(state entity.AuthorizationState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.authorization = state
	if b.closed {
		return
	}

	// Non-blocking send under the mutex; Close closes the channel under the
	// same lock. Receivers never take the lock, so holding it here cannot
	// deadlock.
	select {
	case b.authEvents <- state:
	default:
	}
}

// ReportLocation applies a device location report.
func (b *Bridge) ReportLocation(location orb.Point) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.location = location
	b.hasLocation = true
}

// ReportActiveRegions replaces the mirror with the device's actual monitored
// set. The device is the source of truth; the next reconciliation pass works
// off this report.
func (b *Bridge) ReportActiveRegions(spotIDs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.activeRegions = make(map[string]struct{}, len(spotIDs))
	for _, id := range spotIDs {
		b.activeRegions[id] = struct{}{}
	}
}

// ReportCapability applies a device monitoring-capability report.
func (b *Bridge) ReportCapability(available bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.available = available
}

// Close shuts the authorization event stream down.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.authEvents)
}

var (
	_ service.RegionMonitor     = (*Bridge)(nil)
	_ service.PermissionService = (*Bridge)(nil)
	_ service.LocationProvider  = (*Bridge)(nil)
)
