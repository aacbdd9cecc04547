package models

import "time"

// LeaveStatus tracks a leave request through review.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// LeaveRequest represents an employee leave application (PostgreSQL)
type LeaveRequest struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	UserID     uint        `json:"user_id" gorm:"index"`
	TeamID     *uint       `json:"team_id,omitempty" gorm:"index"`
	StartDate  time.Time   `json:"start_date"`
	EndDate    time.Time   `json:"end_date"`
	Reason     string      `json:"reason"`
	Status     LeaveStatus `json:"status" gorm:"size:20;index;default:pending"`
	ReviewedBy *uint       `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// ApplyLeaveRequest defines the request body for applying for leave
type ApplyLeaveRequest struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	Reason    string    `json:"reason" validate:"required,min=3,max=500"`
	TeamID    *uint     `json:"team_id,omitempty"`
}
