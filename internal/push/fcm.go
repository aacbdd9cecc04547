package push

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"github.com/anonto42/hrops/backend/internal/models"
)

// ClickAction is the intent the mobile apps register for notification taps.
const ClickAction = "FLUTTER_NOTIFICATION_CLICK"

// ErrInvalidToken means the device token is no longer registered.
var ErrInvalidToken = errors.New("push token is not registered")

// Sender is the subset of *messaging.Client used here.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM delivers push notifications through Firebase Cloud Messaging.
type FCM struct {
	sender Sender
}

func NewFCM(sender Sender) *FCM {
	return &FCM{sender: sender}
}

func (f *FCM) Push(ctx context.Context, msg models.PushMessage) error {
	if msg.Token == "" {
		return nil
	}
	if _, err := f.sender.Send(ctx, BuildMessage(msg)); err != nil {
		if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
			return fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

// BuildMessage maps a push request onto FCM with high priority on both
// platforms and the notification ID in the data payload for routing.
func BuildMessage(msg models.PushMessage) *messaging.Message {
	return &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: map[string]string{
			"notification_id": msg.NotificationID,
			"type":            string(msg.Type),
			"click_action":    ClickAction,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ClickAction: ClickAction,
				Sound:       "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:    "default",
					Category: ClickAction,
				},
			},
		},
	}
}

// Noop is used when Firebase is not configured.
type Noop struct{}

func (Noop) Push(context.Context, models.PushMessage) error {
	return nil
}
