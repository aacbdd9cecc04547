package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/hrops/backend/internal/models"
	"gorm.io/gorm"
)

// ActionBuilder derives the notification action from a freshly written row.
type ActionBuilder func(leave *models.LeaveRequest) models.ActionDescriptor

// LeaveRepository defines the interface for leave request operations
type LeaveRepository interface {
	CreateWithAction(ctx context.Context, leave *models.LeaveRequest, build ActionBuilder) error
	Review(ctx context.Context, id, reviewerID uint, status models.LeaveStatus, build ActionBuilder) (*models.LeaveRequest, error)
	GetByID(ctx context.Context, id uint) (*models.LeaveRequest, error)
	GetByUserID(ctx context.Context, userID uint) ([]models.LeaveRequest, error)
}

// PostgresLeaveRepository implements LeaveRepository. Every state change is
// committed together with its outbox entry.
type PostgresLeaveRepository struct {
	db     *gorm.DB
	outbox *OutboxRepository
}

// NewPostgresLeaveRepository creates a new PostgresLeaveRepository
func NewPostgresLeaveRepository(db *gorm.DB, outbox *OutboxRepository) *PostgresLeaveRepository {
	return &PostgresLeaveRepository{db: db, outbox: outbox}
}

func (r *PostgresLeaveRepository) CreateWithAction(ctx context.Context, leave *models.LeaveRequest, build ActionBuilder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		leave.Status = models.LeavePending
		if err := tx.Create(leave).Error; err != nil {
			return err
		}
		return r.outbox.Add(tx, build(leave))
	})
}

// Review moves a pending request to approved or rejected.
func (r *PostgresLeaveRepository) Review(ctx context.Context, id, reviewerID uint, status models.LeaveStatus, build ActionBuilder) (*models.LeaveRequest, error) {
	var leave models.LeaveRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.LeaveRequest{}).
			Where("id = ? AND status = ?", id, models.LeavePending).
			Updates(map[string]interface{}{"status": status, "reviewed_by": reviewerID})
		if res.Error != nil {
			return res.Error
		}
		if err := tx.First(&leave, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeaveNotFound
			}
			return err
		}
		if res.RowsAffected == 0 {
			return ErrLeaveNotPending
		}
		return r.outbox.Add(tx, build(&leave))
	})
	if err != nil {
		return nil, err
	}
	return &leave, nil
}

func (r *PostgresLeaveRepository) GetByID(ctx context.Context, id uint) (*models.LeaveRequest, error) {
	var leave models.LeaveRequest
	if err := r.db.WithContext(ctx).First(&leave, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeaveNotFound
		}
		return nil, err
	}
	return &leave, nil
}

func (r *PostgresLeaveRepository) GetByUserID(ctx context.Context, userID uint) ([]models.LeaveRequest, error) {
	leaves := []models.LeaveRequest{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&leaves).Error
	return leaves, err
}
