package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/validators"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PublishFunc hands one descriptor to the action queue.
type PublishFunc func(ctx context.Context, desc models.ActionDescriptor) error

// OutboxRepository stores action descriptors next to business writes so the
// relay can move them onto the queue after the transaction commits.
type OutboxRepository struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db, validate: validators.New()}
}

// Add writes desc using tx, which must be the caller's open transaction.
// The descriptor receives its idempotency key here. An invalid descriptor
// fails with ErrInvalidAction so the business write rolls back with it
// instead of leaving a row the relay can never publish.
func (r *OutboxRepository) Add(tx *gorm.DB, desc models.ActionDescriptor) error {
	if err := r.validate.Struct(desc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if desc.ID == "" {
		desc.ID = uuid.NewString()
	}
	payload, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	entry := &models.OutboxEntry{
		ActionID: desc.ID,
		Payload:  datatypes.JSON(payload),
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ProcessPending publishes up to limit unpublished entries, oldest first.
// Rows are locked with SKIP LOCKED so several relays can run side by side.
// A failed publish leaves the row pending with its attempt count bumped.
func (r *OutboxRepository) ProcessPending(ctx context.Context, limit int, publish PublishFunc) (int, error) {
	published := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []models.OutboxEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("published_at IS NULL").
			Order("id").
			Limit(limit).
			Find(&entries).Error; err != nil {
			return fmt.Errorf("select outbox entries: %w", err)
		}

		for _, entry := range entries {
			var desc models.ActionDescriptor
			pubErr := json.Unmarshal(entry.Payload, &desc)
			if pubErr == nil {
				pubErr = publish(ctx, desc)
			}

			if pubErr != nil {
				if err := tx.Model(&models.OutboxEntry{}).Where("id = ?", entry.ID).Updates(map[string]interface{}{
					"attempts":   gorm.Expr("attempts + 1"),
					"last_error": pubErr.Error(),
				}).Error; err != nil {
					return fmt.Errorf("record outbox failure: %w", err)
				}
				continue
			}

			now := time.Now().UTC()
			if err := tx.Model(&models.OutboxEntry{}).Where("id = ?", entry.ID).Update("published_at", now).Error; err != nil {
				return fmt.Errorf("mark outbox entry published: %w", err)
			}
			published++
		}
		return nil
	})
	return published, err
}

// PendingCount is used by health reporting and tests.
func (r *OutboxRepository) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OutboxEntry{}).Where("published_at IS NULL").Count(&count).Error
	return count, err
}
