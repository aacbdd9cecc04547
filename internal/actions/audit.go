package actions

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/repositories"
)

// LogStore persists audit log entries.
type LogStore interface {
	CreateLog(ctx context.Context, entry *models.LogEntry) error
}

// AuditLogger writes the one log entry recorded per processed action.
type AuditLogger struct {
	logs LogStore
	now  func() time.Time
}

func NewAuditLogger(logs LogStore) *AuditLogger {
	return &AuditLogger{
		logs: logs,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WriteLog records the raw message and primary recipient. A redelivered
// action returns the entry stored the first time.
func (a *AuditLogger) WriteLog(ctx context.Context, desc models.ActionDescriptor) (*models.LogEntry, error) {
	entry := &models.LogEntry{
		ActionID:  desc.ID,
		Type:      desc.Type,
		Message:   desc.Message,
		RoleTag:   desc.RoleTag,
		CreatedAt: a.now(),
	}
	if desc.PrimaryRecipientID != nil {
		entry.PrimaryRecipientID = models.UintPtr(*desc.PrimaryRecipientID)
	}
	if !desc.HideInLog {
		entry.ActorID = models.UintPtr(desc.ActorID)
	}

	if err := a.logs.CreateLog(ctx, entry); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return nil, err
	}
	return entry, nil
}
