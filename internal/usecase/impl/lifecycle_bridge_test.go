package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	"spotfence/internal/domain/entity"
	"spotfence/internal/usecase"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingEngine records which engine entry points the bridge dispatched to.
type recordingEngine struct {
	mu            sync.Mutex
	syncs         int
	lifecycles    []entity.LifecyclePhase
	locations     []orb.Point
	regionEntries []*entity.RegionEvent
	authStates    []entity.AuthorizationState
}

func (e *recordingEngine) SynchronizeNow(_ context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncs++
}

func (e *recordingEngine) SetGloballyEnabled(_ context.Context, _ bool) {}

func (e *recordingEngine) MonitoredSpots(_ context.Context) ([]*usecase.MonitoredSpotView, error) {
	return nil, nil
}

func (e *recordingEngine) RequestPermissionUpgrade(_ context.Context, _ bool) (entity.AuthorizationState, error) {
	return entity.AuthorizationUndetermined, nil
}

func (e *recordingEngine) HandleRegionEntry(_ context.Context, event *entity.RegionEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.regionEntries = append(e.regionEntries, event)
}

func (e *recordingEngine) ObserveAuthorization(_ context.Context, state entity.AuthorizationState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.authStates = append(e.authStates, state)
}

func (e *recordingEngine) ObserveLocation(_ context.Context, location orb.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locations = append(e.locations, location)
}

func (e *recordingEngine) ObserveLifecycle(_ context.Context, phase entity.LifecyclePhase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lifecycles = append(e.lifecycles, phase)
}

func TestBridgeDispatchesEnqueuedEvents(t *testing.T) {
	engine := &recordingEngine{}
	permissions := newFakePermissions(entity.AuthorizationUndetermined)
	bridge := NewLifecycleBridge(engine, permissions, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)

	bridge.OnLifecyclePhase(entity.PhaseWillEnterForeground)
	bridge.OnLocationUpdated(orb.Point{121.5, 25.0})
	bridge.OnRegionEntered(&entity.RegionEvent{SpotID: "a"})
	bridge.RequestSynchronize()

	require.Eventually(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()

		return engine.syncs == 1 &&
			len(engine.lifecycles) == 1 &&
			len(engine.locations) == 1 &&
			len(engine.regionEntries) == 1
	}, time.Second, 5*time.Millisecond)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, entity.PhaseWillEnterForeground, engine.lifecycles[0])
	assert.Equal(t, orb.Point{121.5, 25.0}, engine.locations[0])
	assert.Equal(t, "a", engine.regionEntries[0].SpotID)
}

func TestBridgeForwardsAuthorizationEvents(t *testing.T) {
	engine := &recordingEngine{}
	permissions := newFakePermissions(entity.AuthorizationUndetermined)
	bridge := NewLifecycleBridge(engine, permissions, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)

	permissions.events <- entity.AuthorizationAlways
	permissions.events <- entity.AuthorizationDenied

	require.Eventually(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()

		return len(engine.authStates) == 2
	}, time.Second, 5*time.Millisecond)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, entity.AuthorizationAlways, engine.authStates[0])
	assert.Equal(t, entity.AuthorizationDenied, engine.authStates[1])
}

func TestBridgeSurvivesClosedAuthorizationStream(t *testing.T) {
	engine := &recordingEngine{}
	permissions := newFakePermissions(entity.AuthorizationUndetermined)
	bridge := NewLifecycleBridge(engine, permissions, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)

	close(permissions.events)

	// The mailbox keeps dispatching after the stream closes.
	bridge.RequestSynchronize()

	require.Eventually(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()

		return engine.syncs == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBridgeDropsWhenMailboxFull(t *testing.T) {
	engine := &recordingEngine{}
	permissions := newFakePermissions(entity.AuthorizationUndetermined)
	bridge := NewLifecycleBridge(engine, permissions, testLogger())

	// Not running: the mailbox fills and further enqueues must not block.
	for range mailboxSize + 10 {
		bridge.RequestSynchronize()
	}

	assert.Len(t, bridge.mailbox, mailboxSize)
}
