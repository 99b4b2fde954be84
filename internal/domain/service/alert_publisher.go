package service

import (
	"context"
)

// GeofenceAlertEvent is the in-app alert emitted when a region-entry event
// passes the throttle while the app is foregrounded. Consumers render it as
// a live banner; background delivery goes through ProximityNotifier instead.
type GeofenceAlertEvent struct {
	RequestID   string `json:"request_id,omitempty"` // For distributed tracing
	AlertID     string `json:"alert_id"`
	SpotID      string `json:"spot_id"`
	DisplayName string `json:"display_name"`
	OccurredAt  string `json:"occurred_at"`
}

// AlertPublisher publishes in-app alert events to the event stream the UI
// layer subscribes to.
type AlertPublisher interface {
	// PublishAlert publishes a foreground geofence alert event.
	PublishAlert(ctx context.Context, event *GeofenceAlertEvent) error

	// Close releases any resources held by the publisher.
	Close() error
}
