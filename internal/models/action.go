package models

import "time"

// NotificationType is the category tag of an action. It drives the push
// title and the client-side routing of a notification.
type NotificationType string

const (
	TypeAttendance          NotificationType = "attendance"
	TypeLeave               NotificationType = "leave"
	TypeAccount             NotificationType = "account"
	TypeEmployees           NotificationType = "employees"
	TypeWorkingHours        NotificationType = "working_hours"
	TypeWorkingHoursRequest NotificationType = "working_hours_request"
	TypeRemoteWorkRequest   NotificationType = "remote_work_request"
	TypeMeetingRoomBooking  NotificationType = "meeting_room_booking"
	TypeLeaveRequest        NotificationType = "leave_request"
	TypeSuggestions         NotificationType = "suggestions"
	TypeConfig              NotificationType = "config"
	TypeTeam                NotificationType = "team"
	TypeDepartment          NotificationType = "department"
	TypeEvent               NotificationType = "event"
	TypeTicket              NotificationType = "ticket"
)

// NotificationTypes lists the closed set of accepted types.
var NotificationTypes = []NotificationType{
	TypeAttendance,
	TypeLeave,
	TypeAccount,
	TypeEmployees,
	TypeWorkingHours,
	TypeWorkingHoursRequest,
	TypeRemoteWorkRequest,
	TypeMeetingRoomBooking,
	TypeLeaveRequest,
	TypeSuggestions,
	TypeConfig,
	TypeTeam,
	TypeDepartment,
	TypeEvent,
	TypeTicket,
}

// Valid reports whether t belongs to the closed set.
func (t NotificationType) Valid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ActionDescriptor is the unit of work placed on the action queue. It
// describes one business event and who should hear about it.
type ActionDescriptor struct {
	// ID is the idempotency key, assigned once when the descriptor is
	// first queued (or written to the outbox) and stable across redeliveries.
	ID string `json:"id"`

	ActorID            uint   `json:"actor_id" validate:"required"`
	PrimaryRecipientID *uint  `json:"primary_recipient_id,omitempty"`
	ExtraRecipientIDs  []uint `json:"extra_recipient_ids,omitempty"`

	NotifyAllAdmins      bool   `json:"notify_all_admins,omitempty"`
	NotifyAllActiveUsers bool   `json:"notify_all_active_users,omitempty"`
	TeamIDs              []uint `json:"team_ids,omitempty"`
	DepartmentIDs        []uint `json:"department_ids,omitempty"`

	Type         NotificationType `json:"notification_type" validate:"required,notification_type"`
	Message      string           `json:"message" validate:"required"`
	AdminMessage string           `json:"admin_message,omitempty"`

	HideInLog          bool   `json:"hide_in_log,omitempty"`
	HideInNotification bool   `json:"hide_in_notification,omitempty"`
	RoleTag            string `json:"role_tag,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// HasRecipientCriteria reports whether the descriptor can select anyone at
// all. Descriptors without criteria only produce an audit log entry.
func (d ActionDescriptor) HasRecipientCriteria() bool {
	return d.PrimaryRecipientID != nil ||
		len(d.ExtraRecipientIDs) > 0 ||
		d.NotifyAllAdmins ||
		d.NotifyAllActiveUsers ||
		len(d.TeamIDs) > 0 ||
		len(d.DepartmentIDs) > 0
}

// UintPtr is a small helper for optional IDs.
func UintPtr(v uint) *uint {
	return &v
}
