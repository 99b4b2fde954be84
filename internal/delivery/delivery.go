// Package delivery defines the shared contract for serving surfaces.
package delivery

import "context"

// Delivery is a servable surface (HTTP API, worker). Instances are collected
// into the "deliveries" group and started together by the application entry
// point.
type Delivery interface {
	Serve(ctx context.Context) error
}
