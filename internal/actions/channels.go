package actions

import (
	"context"

	"github.com/anonto42/hrops/backend/internal/models"
)

// Emitter delivers an event to the live sessions of one user. Having no
// live session is not an error.
type Emitter interface {
	Emit(ctx context.Context, userID uint, event models.RealtimeEvent) error
}

// Pusher sends a mobile push notification to a single device token.
type Pusher interface {
	Push(ctx context.Context, msg models.PushMessage) error
}
