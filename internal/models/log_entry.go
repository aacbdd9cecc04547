package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LogEntry is the single audit record written per processed action (MongoDB).
// It records what happened; notifications record who was told.
type LogEntry struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ActionID           string             `json:"action_id" bson:"action_id"`
	ActorID            *uint              `json:"actor_id" bson:"actor_id"` // nil when hidden in the log
	PrimaryRecipientID *uint              `json:"primary_recipient_id" bson:"primary_recipient_id"`
	Type               NotificationType   `json:"type" bson:"type"`
	Message            string             `json:"message" bson:"message"`
	RoleTag            string             `json:"role_tag,omitempty" bson:"role_tag,omitempty"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
}
