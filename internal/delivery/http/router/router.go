// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"spotfence/internal/delivery/http/middleware"
	"spotfence/internal/delivery/http/router/handler"
	"spotfence/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	GeofenceHandler *handler.GeofenceHandler
	DeviceHandler   *handler.DeviceHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	geofenceHandler *handler.GeofenceHandler
	deviceHandler   *handler.DeviceHandler
	authMiddleware  *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		geofenceHandler: params.GeofenceHandler,
		deviceHandler:   params.DeviceHandler,
		authMiddleware:  params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check and metrics endpoints
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	v1 := e.Group("/v1")
	v1.Use(r.authMiddleware.Authenticate)

	// Engine-facing routes used by the companion app UI
	geofenceGroup := v1.Group("/geofence")
	{
		geofenceGroup.POST("/sync", r.geofenceHandler.Synchronize)
		geofenceGroup.GET("/monitored", r.geofenceHandler.MonitoredSpots)
		geofenceGroup.POST("/enabled", r.geofenceHandler.SetEnabled)
	}

	v1.POST("/permission/upgrade", r.geofenceHandler.RequestPermissionUpgrade)

	// Spot snapshot sync-in
	v1.POST("/spots/snapshot", r.deviceHandler.ReplaceSnapshot)

	// Device state reports
	deviceGroup := v1.Group("/device")
	{
		deviceGroup.POST("/authorization", r.deviceHandler.ReportAuthorization)
		deviceGroup.POST("/location", r.deviceHandler.ReportLocation)
		deviceGroup.POST("/lifecycle", r.deviceHandler.ReportLifecycle)
		deviceGroup.POST("/regions", r.deviceHandler.ReportRegions)
	}
}
