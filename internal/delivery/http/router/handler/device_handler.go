package handler

import (
	"log/slog"
	"net/http"

	"spotfence/internal/delivery/http/response"
	"spotfence/internal/domain/entity"
	domainerrors "spotfence/internal/domain/errors"
	"spotfence/internal/domain/repository"
	"spotfence/internal/infra/devicebridge"
	"spotfence/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb"
	"go.uber.org/fx"
)

// DeviceHandlerParams holds dependencies for DeviceHandler, injected by Fx.
type DeviceHandlerParams struct {
	fx.In

	Bridge *devicebridge.Bridge
	Spots  repository.SpotRepository
	Events *impl.LifecycleBridge
	Logger *slog.Logger
}

// DeviceHandler ingests the paired device's state reports. Reports update the
// server-side mirror first and are then redispatched onto the engine's
// serialized context through the lifecycle bridge.
type DeviceHandler struct {
	bridge *devicebridge.Bridge
	spots  repository.SpotRepository
	events *impl.LifecycleBridge
	logger *slog.Logger
}

// NewDeviceHandler is the constructor for DeviceHandler.
func NewDeviceHandler(params DeviceHandlerParams) *DeviceHandler {
	return &DeviceHandler{
		bridge: params.Bridge,
		spots:  params.Spots,
		events: params.Events,
		logger: params.Logger,
	}
}

// SpotPayload represents one spot in a snapshot upload.
type SpotPayload struct {
	ID                       string  `json:"id" validate:"required"`
	Name                     string  `json:"name"`
	Latitude                 float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude                float64 `json:"longitude" validate:"min=-180,max=180"`
	NotificationRadiusMeters float64 `json:"notification_radius_meters"`
	WantsNearbyNotification  bool    `json:"wants_nearby_notification"`
}

// SnapshotRequest represents the request body for a full spot snapshot.
type SnapshotRequest struct {
	Spots []SpotPayload `json:"spots" validate:"dive"`
}

// AuthorizationReport represents an authorization-change callback.
type AuthorizationReport struct {
	State string `json:"state" validate:"required"`
}

// LocationReport represents a location-update callback.
type LocationReport struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// LifecycleReport represents an app lifecycle transition.
type LifecycleReport struct {
	Phase string `json:"phase" validate:"required"`
}

// RegionsReport represents the device's actual monitored-region set and
// monitoring capability.
type RegionsReport struct {
	SpotIDs             []string `json:"spot_ids"`
	MonitoringAvailable *bool    `json:"monitoring_available,omitempty"`
}

// ReplaceSnapshot replaces the full spot snapshot and schedules a
// reconciliation pass over the new data.
func (h *DeviceHandler) ReplaceSnapshot(c echo.Context) error {
	var req SnapshotRequest
	if err := c.Bind(&req); err != nil {
		return domainerrors.ErrSnapshotInvalid.WrapMessage(err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return domainerrors.ErrSnapshotInvalid.WrapMessage(err.Error())
	}

	spots := make([]*entity.Spot, 0, len(req.Spots))
	for _, p := range req.Spots {
		spots = append(spots, &entity.Spot{
			ID:                       p.ID,
			Name:                     p.Name,
			Latitude:                 p.Latitude,
			Longitude:                p.Longitude,
			NotificationRadiusMeters: p.NotificationRadiusMeters,
			WantsNearbyNotification:  p.WantsNearbyNotification,
		})
	}

	if err := h.spots.ReplaceSnapshot(c.Request().Context(), spots); err != nil {
		h.logger.Error("failed to persist spot snapshot", slog.Any("error", err))

		return response.InternalServerError(c, "SNAPSHOT_PERSIST_FAILED", "Could not persist the snapshot")
	}

	h.events.RequestSynchronize()

	return response.Success(c, http.StatusOK, map[string]int{"spots": len(spots)}, "Snapshot replaced")
}

// ReportAuthorization applies an authorization-change report. The mirror is
// updated synchronously; engine reaction happens on the serialized context.
func (h *DeviceHandler) ReportAuthorization(c echo.Context) error {
	var req AuthorizationReport
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid authorization report")
	}

	state := entity.AuthorizationState(req.State)
	if !state.Valid() {
		return domainerrors.ErrUnknownAuthorizationState.WrapMessage(req.State)
	}

	h.bridge.ReportAuthorization(state)

	return response.Success(c, http.StatusOK, nil, "Authorization recorded")
}

// ReportLocation applies a location-update report.
func (h *DeviceHandler) ReportLocation(c echo.Context) error {
	var req LocationReport
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid location report")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	location := orb.Point{req.Longitude, req.Latitude}
	h.bridge.ReportLocation(location)
	h.events.OnLocationUpdated(location)

	return response.Success(c, http.StatusOK, nil, "Location recorded")
}

// ReportLifecycle applies an app lifecycle transition report.
func (h *DeviceHandler) ReportLifecycle(c echo.Context) error {
	var req LifecycleReport
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid lifecycle report")
	}

	phase := entity.LifecyclePhase(req.Phase)
	if !phase.Valid() {
		return domainerrors.ErrUnknownLifecyclePhase.WrapMessage(req.Phase)
	}

	h.events.OnLifecyclePhase(phase)

	return response.Success(c, http.StatusOK, nil, "Lifecycle transition recorded")
}

// ReportRegions replaces the mirrored monitored-region set with the device's
// actual one and records monitoring capability when reported.
func (h *DeviceHandler) ReportRegions(c echo.Context) error {
	var req RegionsReport
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid regions report")
	}

	h.bridge.ReportActiveRegions(req.SpotIDs)
	if req.MonitoringAvailable != nil {
		h.bridge.ReportCapability(*req.MonitoringAvailable)
	}

	return response.Success(c, http.StatusOK, map[string]int{"regions": len(req.SpotIDs)}, "Region set recorded")
}
