package service

import (
	"context"
)

// Device command names understood by the mobile client.
const (
	CommandStartMonitoring   = "start_monitoring"
	CommandStopMonitoring    = "stop_monitoring"
	CommandRequestWhileInUse = "request_while_in_use"
	CommandRequestAlways     = "request_always"
	CommandRequestFix        = "request_location_fix"
)

// DeviceCommander delivers engine commands to the paired device. Delivery is
// fire-and-forget: outcomes surface as later device reports, never as an
// awaited completion.
type DeviceCommander interface {
	SendCommand(ctx context.Context, command string, payload map[string]string) error
}
