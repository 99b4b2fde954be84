package handler

import (
	"log/slog"
	"net/http"

	"spotfence/internal/delivery/http/response"
	domainerrors "spotfence/internal/domain/errors"
	"spotfence/internal/usecase"
	"spotfence/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// GeofenceHandlerParams holds dependencies for GeofenceHandler, injected by Fx.
type GeofenceHandlerParams struct {
	fx.In

	GeofenceUC usecase.GeofenceUsecase
	Bridge     *impl.LifecycleBridge
	Logger     *slog.Logger
}

// GeofenceHandler exposes the reconciliation engine to the companion app.
type GeofenceHandler struct {
	geofenceUC usecase.GeofenceUsecase
	bridge     *impl.LifecycleBridge
	logger     *slog.Logger
}

// NewGeofenceHandler is the constructor for GeofenceHandler.
func NewGeofenceHandler(params GeofenceHandlerParams) *GeofenceHandler {
	return &GeofenceHandler{
		geofenceUC: params.GeofenceUC,
		bridge:     params.Bridge,
		logger:     params.Logger,
	}
}

// SetEnabledRequest represents the request body for the master switch.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// PermissionUpgradeRequest represents the request body for a permission upgrade.
type PermissionUpgradeRequest struct {
	WantAlways bool `json:"want_always"`
}

// Synchronize enqueues one reconciliation pass. The pass runs asynchronously
// on the engine's serialized context, so the handler only acknowledges the
// trigger.
func (h *GeofenceHandler) Synchronize(c echo.Context) error {
	h.bridge.RequestSynchronize()

	return response.Success(c, http.StatusAccepted, nil, "Synchronization scheduled")
}

// MonitoredSpots returns the derived eligibility/monitoring read model.
func (h *GeofenceHandler) MonitoredSpots(c echo.Context) error {
	views, err := h.geofenceUC.MonitoredSpots(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to derive monitored spots", slog.Any("error", err))

		return response.InternalServerError(c, "MONITORED_SPOTS_FAILED", "Could not derive the monitoring state")
	}

	return response.Success(c, http.StatusOK, views, "Monitored spots retrieved successfully")
}

// SetEnabled flips the master switch and reconciles before replying, so the
// app can refresh its UI immediately after the call returns.
func (h *GeofenceHandler) SetEnabled(c echo.Context) error {
	var req SetEnabledRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid enabled input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	h.geofenceUC.SetGloballyEnabled(c.Request().Context(), *req.Enabled)

	return response.Success(c, http.StatusOK, map[string]bool{"enabled": *req.Enabled}, "Geofencing toggled")
}

// RequestPermissionUpgrade forwards a permission request to the device and
// waits (bounded) for the user's decision. The resulting state is returned so
// the app can revert its toggle when the user declined.
func (h *GeofenceHandler) RequestPermissionUpgrade(c echo.Context) error {
	var req PermissionUpgradeRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid permission upgrade input")
	}

	state, err := h.geofenceUC.RequestPermissionUpgrade(c.Request().Context(), req.WantAlways)
	if err != nil {
		h.logger.Warn("permission upgrade request failed", slog.Any("error", err))

		return domainerrors.ErrPermissionRequestFailed.WrapMessage(err.Error())
	}

	return response.Success(c, http.StatusOK, map[string]string{"state": string(state)}, "Permission state resolved")
}
