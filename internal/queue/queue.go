package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrQueueUnavailable is returned by Enqueue when the descriptor could
	// not be durably queued.
	ErrQueueUnavailable = errors.New("action queue unavailable")
	// ErrInvalidDescriptor is returned by Enqueue for descriptors that fail
	// validation. Nothing is queued.
	ErrInvalidDescriptor = errors.New("invalid action descriptor")
	// ErrPoisonMessage marks deliveries that can never be processed.
	ErrPoisonMessage = errors.New("undecodable action message")
)

// Handler processes one descriptor. A nil error acknowledges it; any error
// returns it to the queue for another attempt.
type Handler func(ctx context.Context, desc models.ActionDescriptor) error

// Enqueuer is the producer side used by business handlers.
type Enqueuer interface {
	Enqueue(ctx context.Context, desc models.ActionDescriptor) error
}

// Consumer is the worker side.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
}

// Queue is implemented by every driver.
type Queue interface {
	Enqueuer
	Consumer
	Close() error
}

// prepare stamps the idempotency key and enqueue time, keeping values set
// by the outbox, and validates the result.
func prepare(v *validator.Validate, desc *models.ActionDescriptor) error {
	if desc.ID == "" {
		desc.ID = uuid.NewString()
	}
	if desc.EnqueuedAt.IsZero() {
		desc.EnqueuedAt = time.Now().UTC()
	}
	if err := v.Struct(desc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return nil
}
