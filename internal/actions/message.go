package actions

import "github.com/anonto42/hrops/backend/internal/models"

// AnonymousActor is shown when the actor is hidden or cannot be loaded.
const AnonymousActor = "Someone"

var titles = map[models.NotificationType]string{
	models.TypeAttendance:          "Attendance",
	models.TypeLeave:               "Leave",
	models.TypeAccount:             "Account",
	models.TypeEmployees:           "Employees",
	models.TypeWorkingHours:        "Working Hours",
	models.TypeWorkingHoursRequest: "Working Hours Request",
	models.TypeRemoteWorkRequest:   "Remote Work Request",
	models.TypeMeetingRoomBooking:  "Meeting Room Booking",
	models.TypeLeaveRequest:        "Leave Request",
	models.TypeSuggestions:         "Suggestions",
	models.TypeConfig:              "Configuration",
	models.TypeTeam:                "Team",
	models.TypeDepartment:          "Department",
	models.TypeEvent:               "Event",
	models.TypeTicket:              "Ticket",
}

// Title returns the push title for a notification type.
func Title(t models.NotificationType) string {
	if title, ok := titles[t]; ok {
		return title
	}
	return "Notification"
}

// SelectMessage picks the body a recipient with the given role sees.
func SelectMessage(role models.Role, desc models.ActionDescriptor) string {
	if role == models.RoleAdmin && desc.AdminMessage != "" {
		return desc.AdminMessage
	}
	return desc.Message
}

// PushBody renders "{actor} {message}".
func PushBody(actorName, message string) string {
	if actorName == "" {
		actorName = AnonymousActor
	}
	return actorName + " " + message
}
