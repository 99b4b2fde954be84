package service

import (
	"context"
)

// ProximityNotifier delivers the user-visible proximity alert for a spot.
// The id must be stable per spot so that re-scheduling for the same spot
// replaces rather than duplicates pending notifications.
type ProximityNotifier interface {
	Schedule(ctx context.Context, spotID, title, body string, data map[string]string) error
}
