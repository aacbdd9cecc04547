package models

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxEntry is an action descriptor waiting to be relayed onto the
// action queue. It is written in the same transaction as the business row.
type OutboxEntry struct {
	ID          uint           `gorm:"primaryKey"`
	ActionID    string         `gorm:"size:36;uniqueIndex"`
	Payload     datatypes.JSON `gorm:"not null"`
	Attempts    int            `gorm:"default:0"`
	LastError   string
	CreatedAt   time.Time  `gorm:"index"`
	PublishedAt *time.Time `gorm:"index"`
}

func (OutboxEntry) TableName() string {
	return "action_outbox"
}
