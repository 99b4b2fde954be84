package devicebridge

import (
	"context"
	"sync"
	"testing"

	"spotfence/internal/domain/entity"
	"spotfence/internal/domain/service"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentCommand struct {
	command string
	payload map[string]string
}

type fakeCommander struct {
	mu   sync.Mutex
	sent []sentCommand
	err  error
}

func (c *fakeCommander) SendCommand(_ context.Context, command string, payload map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentCommand{command: command, payload: payload})

	return nil
}

func TestStartMonitoringCommandsDeviceAndMirrors(t *testing.T) {
	commander := &fakeCommander{}
	bridge := New(commander)
	ctx := context.Background()

	err := bridge.StartMonitoring(ctx, "a", orb.Point{121.56, 25.03}, 200)
	require.NoError(t, err)

	require.Len(t, commander.sent, 1)
	cmd := commander.sent[0]
	assert.Equal(t, service.CommandStartMonitoring, cmd.command)
	assert.Equal(t, "a", cmd.payload["spot_id"])
	assert.Equal(t, "25.03", cmd.payload["latitude"])
	assert.Equal(t, "121.56", cmd.payload["longitude"])
	assert.Equal(t, "200", cmd.payload["radius_meters"])

	active, err := bridge.ActiveRegionIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, active, "a")
}

func TestStopMonitoringRemovesFromMirror(t *testing.T) {
	commander := &fakeCommander{}
	bridge := New(commander)
	ctx := context.Background()

	require.NoError(t, bridge.StartMonitoring(ctx, "a", orb.Point{121.5, 25.0}, 200))
	require.NoError(t, bridge.StopMonitoring(ctx, "a"))

	active, err := bridge.ActiveRegionIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCommandFailureLeavesMirrorUntouched(t *testing.T) {
	commander := &fakeCommander{err: assert.AnError}
	bridge := New(commander)
	ctx := context.Background()

	err := bridge.StartMonitoring(ctx, "a", orb.Point{121.5, 25.0}, 200)
	require.Error(t, err)

	active, err := bridge.ActiveRegionIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestReportAuthorizationFeedsEventStream(t *testing.T) {
	bridge := New(&fakeCommander{})

	assert.Equal(t, entity.AuthorizationUndetermined, bridge.CurrentAuthorization(context.Background()))

	bridge.ReportAuthorization(entity.AuthorizationAlways)

	assert.Equal(t, entity.AuthorizationAlways, bridge.CurrentAuthorization(context.Background()))
	select {
	case state := <-bridge.AuthorizationEvents():
		assert.Equal(t, entity.AuthorizationAlways, state)
	default:
		t.Fatal("expected an authorization event")
	}
}

func TestReportAuthorizationNeverBlocksWhenStreamFull(t *testing.T) {
	bridge := New(&fakeCommander{})

	for range authEventBuffer + 10 {
		bridge.ReportAuthorization(entity.AuthorizationDenied)
	}

	assert.Equal(t, entity.AuthorizationDenied, bridge.CurrentAuthorization(context.Background()))
}

func TestReportActiveRegionsReplacesMirror(t *testing.T) {
	bridge := New(&fakeCommander{})
	ctx := context.Background()

	require.NoError(t, bridge.StartMonitoring(ctx, "a", orb.Point{121.5, 25.0}, 200))

	bridge.ReportActiveRegions([]string{"b", "c"})

	active, err := bridge.ActiveRegionIDs(ctx)
	require.NoError(t, err)
	assert.NotContains(t, active, "a")
	assert.Contains(t, active, "b")
	assert.Contains(t, active, "c")
}

func TestReportLocationAndCapability(t *testing.T) {
	bridge := New(&fakeCommander{})
	ctx := context.Background()

	_, has := bridge.LastKnownLocation(ctx)
	assert.False(t, has)

	bridge.ReportLocation(orb.Point{121.5, 25.0})
	point, has := bridge.LastKnownLocation(ctx)
	assert.True(t, has)
	assert.Equal(t, orb.Point{121.5, 25.0}, point)

	assert.True(t, bridge.MonitoringAvailable(ctx))
	bridge.ReportCapability(false)
	assert.False(t, bridge.MonitoringAvailable(ctx))
}

func TestReportAuthorizationRacingCloseDoesNotPanic(t *testing.T) {
	bridge := New(&fakeCommander{})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for range 200 {
				bridge.ReportAuthorization(entity.AuthorizationAlways)
			}
		}()
	}

	close(start)
	bridge.Close()
	wg.Wait()

	assert.Equal(t, entity.AuthorizationAlways, bridge.CurrentAuthorization(context.Background()))
}

func TestCloseIsIdempotentAndStopsReports(t *testing.T) {
	bridge := New(&fakeCommander{})

	bridge.Close()
	bridge.Close()

	// Reporting after close still updates the mirror without panicking.
	bridge.ReportAuthorization(entity.AuthorizationAlways)
	assert.Equal(t, entity.AuthorizationAlways, bridge.CurrentAuthorization(context.Background()))
}
