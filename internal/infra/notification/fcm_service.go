// Package notification delivers proximity alerts and device commands over
// Firebase Cloud Messaging.
package notification

import (
	"context"
	"fmt"

	"spotfence/internal/domain/service"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

const notificationChannel = "nearby_spots"

// FCMService implements both ProximityNotifier and DeviceCommander against
// one paired device token.
type FCMService struct {
	client      *messaging.Client
	deviceToken string
}

// NewFCMService creates a new FCM-backed notifier/commander instance.
func NewFCMService(ctx context.Context, credentialsPath, deviceToken string) (*FCMService, error) {
	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMService{
		client:      client,
		deviceToken: deviceToken,
	}, nil
}

// Schedule delivers the proximity alert. The spot id doubles as the collapse
// id on both platforms so a re-delivery for the same spot replaces any
// pending notification instead of duplicating it.
func (s *FCMService) Schedule(ctx context.Context, spotID, title, body string, data map[string]string) error {
	message := &messaging.Message{
		Token: s.deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			CollapseKey: spotID,
			Priority:    "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: notificationChannel,
				Tag:       spotID,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-collapse-id": spotID,
			},
		},
	}

	if _, err := s.client.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	return nil
}

// SendCommand delivers an engine command as a data-only message.
func (s *FCMService) SendCommand(ctx context.Context, command string, payload map[string]string) error {
	data := make(map[string]string, len(payload)+1)
	for k, v := range payload {
		data[k] = v
	}
	data["command"] = command

	message := &messaging.Message{
		Token: s.deviceToken,
		Data:  data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-push-type": "background",
				"apns-priority":  "5",
			},
		},
	}

	if _, err := s.client.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to send %s command: %w", command, err)
	}

	return nil
}

var _ service.ProximityNotifier = (*FCMService)(nil)
var _ service.DeviceCommander = (*FCMService)(nil)
