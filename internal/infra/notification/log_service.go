package notification

import (
	"context"
	"log/slog"

	"spotfence/internal/domain/service"
)

// LogService is the development fallback when Firebase is not configured:
// notifications and commands are written to the log instead of a device.
type LogService struct {
	logger *slog.Logger
}

// NewLogService creates a new log-only notifier/commander instance.
func NewLogService(logger *slog.Logger) *LogService {
	return &LogService{logger: logger}
}

// Schedule logs the would-be notification.
func (s *LogService) Schedule(_ context.Context, spotID, title, body string, data map[string]string) error {
	s.logger.Info("[LogNotifier] proximity notification",
		slog.String("spot_id", spotID),
		slog.String("title", title),
		slog.String("body", body),
		slog.Any("data", data),
	)

	return nil
}

// SendCommand logs the would-be device command.
func (s *LogService) SendCommand(_ context.Context, command string, payload map[string]string) error {
	s.logger.Info("[LogNotifier] device command",
		slog.String("command", command),
		slog.Any("payload", payload),
	)

	return nil
}

var _ service.ProximityNotifier = (*LogService)(nil)
var _ service.DeviceCommander = (*LogService)(nil)
