package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	spotfencemiddleware "spotfence/internal/delivery/http/middleware"
	"spotfence/internal/delivery/http/validator"
	"spotfence/internal/domain/entity"
	"spotfence/internal/infra/devicebridge"
	"spotfence/internal/infra/persistence/file"
	"spotfence/internal/usecase"
	"spotfence/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopCommander satisfies the device command channel without a device.
type noopCommander struct{}

func (noopCommander) SendCommand(_ context.Context, _ string, _ map[string]string) error {
	return nil
}

// idleEngine satisfies GeofenceUsecase for handler tests; the bridge is never
// run, so enqueued events stay in the mailbox.
type idleEngine struct{}

func (idleEngine) SynchronizeNow(_ context.Context)                                    {}
func (idleEngine) SetGloballyEnabled(_ context.Context, _ bool)                        {}
func (idleEngine) HandleRegionEntry(_ context.Context, _ *entity.RegionEvent)          {}
func (idleEngine) ObserveAuthorization(_ context.Context, _ entity.AuthorizationState) {}
func (idleEngine) ObserveLocation(_ context.Context, _ orb.Point)                      {}
func (idleEngine) ObserveLifecycle(_ context.Context, _ entity.LifecyclePhase)         {}

func (idleEngine) MonitoredSpots(_ context.Context) ([]*usecase.MonitoredSpotView, error) {
	return nil, nil
}

func (idleEngine) RequestPermissionUpgrade(_ context.Context, _ bool) (entity.AuthorizationState, error) {
	return entity.AuthorizationUndetermined, nil
}

type deviceHandlerFixture struct {
	handler *DeviceHandler
	bridge  *devicebridge.Bridge
	echo    *echo.Echo
	errorMW *spotfencemiddleware.ErrorMiddleware
}

func newDeviceHandlerFixture(t *testing.T) *deviceHandlerFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bridge := devicebridge.New(noopCommander{})
	spots, err := file.NewSpotRepository(t.TempDir())
	require.NoError(t, err)
	events := impl.NewLifecycleBridge(idleEngine{}, bridge, logger)

	e := echo.New()
	e.Validator = validator.New()

	return &deviceHandlerFixture{
		handler: NewDeviceHandler(DeviceHandlerParams{
			Bridge: bridge,
			Spots:  spots,
			Events: events,
			Logger: logger,
		}),
		bridge:  bridge,
		echo:    e,
		errorMW: spotfencemiddleware.NewErrorMiddleware(logger),
	}
}

// invoke runs a handler the way echo does, routing returned errors through
// the error middleware.
func (f *deviceHandlerFixture) invoke(t *testing.T, h echo.HandlerFunc, c echo.Context) {
	t.Helper()

	if err := h(c); err != nil {
		f.errorMW.HandleHTTPError(err, c)
	}
}

func (f *deviceHandlerFixture) post(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	return f.echo.NewContext(req, rec), rec
}

func TestReportAuthorizationUpdatesMirror(t *testing.T) {
	f := newDeviceHandlerFixture(t)
	c, rec := f.post(t, `{"state":"always"}`)

	require.NoError(t, f.handler.ReportAuthorization(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.AuthorizationAlways, f.bridge.CurrentAuthorization(context.Background()))
}

func TestReportAuthorizationRejectsUnknownState(t *testing.T) {
	f := newDeviceHandlerFixture(t)
	c, rec := f.post(t, `{"state":"sometimes"}`)

	f.invoke(t, f.handler.ReportAuthorization, c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, entity.AuthorizationUndetermined, f.bridge.CurrentAuthorization(context.Background()))

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "UNKNOWN_AUTHORIZATION_STATE", resp.Error.Code)
}

func TestReportLocationUpdatesMirror(t *testing.T) {
	f := newDeviceHandlerFixture(t)
	c, rec := f.post(t, `{"latitude":25.03,"longitude":121.56}`)

	require.NoError(t, f.handler.ReportLocation(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	point, has := f.bridge.LastKnownLocation(context.Background())
	require.True(t, has)
	assert.Equal(t, orb.Point{121.56, 25.03}, point)
}

func TestReportLocationRejectsOutOfRange(t *testing.T) {
	f := newDeviceHandlerFixture(t)
	c, rec := f.post(t, `{"latitude":123.0,"longitude":121.56}`)

	require.NoError(t, f.handler.ReportLocation(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportLifecycleRejectsUnknownPhase(t *testing.T) {
	f := newDeviceHandlerFixture(t)
	c, rec := f.post(t, `{"phase":"hibernating"}`)

	f.invoke(t, f.handler.ReportLifecycle, c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplaceSnapshotPersistsSpots(t *testing.T) {
	f := newDeviceHandlerFixture(t)
	body := `{"spots":[{"id":"a","name":"Cafe","latitude":25.03,"longitude":121.56,"notification_radius_meters":200,"wants_nearby_notification":true}]}`
	c, rec := f.post(t, body)

	require.NoError(t, f.handler.ReplaceSnapshot(c))

	require.Equal(t, http.StatusOK, rec.Code)

	snapshot, err := f.handler.spots.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Cafe", snapshot[0].Name)

	var resp struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestReplaceSnapshotRejectsMissingID(t *testing.T) {
	f := newDeviceHandlerFixture(t)
	c, rec := f.post(t, `{"spots":[{"name":"NoID","latitude":25.0,"longitude":121.5}]}`)

	f.invoke(t, f.handler.ReplaceSnapshot, c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportRegionsReplacesMirror(t *testing.T) {
	f := newDeviceHandlerFixture(t)
	c, rec := f.post(t, `{"spot_ids":["a","b"],"monitoring_available":false}`)

	require.NoError(t, f.handler.ReportRegions(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	active, err := f.bridge.ActiveRegionIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 2)
	assert.False(t, f.bridge.MonitoringAvailable(context.Background()))
}
