package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification represents a per-recipient notification (MongoDB)
type Notification struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ActionID    string             `json:"action_id" bson:"action_id"`
	RecipientID uint               `json:"recipient_id" bson:"recipient_id"`
	ActorID     *uint              `json:"actor_id" bson:"actor_id"` // nil when the actor is hidden
	Type        NotificationType   `json:"type" bson:"type"`
	Message     string             `json:"message" bson:"message"`
	Read        bool               `json:"read" bson:"read"`
	RoleTag     string             `json:"role_tag,omitempty" bson:"role_tag,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

// EnrichedNotification includes actor info for display
type EnrichedNotification struct {
	Notification `bson:",inline"`
	Actor        *UserCompact `json:"actor"`
}

// RealtimeEvent is the single event type pushed over a user's live channel.
type RealtimeEvent struct {
	Event        string               `json:"event"`
	Notification EnrichedNotification `json:"notification"`
}

// EventNotification is the realtime event name for a new notification.
const EventNotification = "notification"

// PushMessage is a provider-neutral mobile push request.
type PushMessage struct {
	Token          string
	Title          string
	Body           string
	NotificationID string
	Type           NotificationType
}

// UnreadSummary is returned by the unread-count API.
type UnreadSummary struct {
	Count     int64 `json:"count"`
	HasUnread bool  `json:"has_unread"`
}
