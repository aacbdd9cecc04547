package models

// CreateDepartmentRequest defines the request body for a new department
type CreateDepartmentRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// CreateTeamRequest defines the request body for a new team
type CreateTeamRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	DepartmentID *uint  `json:"department_id,omitempty"`
	MemberIDs    []uint `json:"member_ids,omitempty"`
}

// AddMembersRequest defines the request body for adding team members
type AddMembersRequest struct {
	UserIDs []uint `json:"user_ids" validate:"required,min=1"`
}

// UpdateRoleRequest changes a user's role
type UpdateRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=admin employee"`
}

// UpdateActiveRequest activates or deactivates a user
type UpdateActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AnnouncementRequest broadcasts an event to teams, departments or everyone
type AnnouncementRequest struct {
	Message       string `json:"message" validate:"required,min=3,max=500"`
	TeamIDs       []uint `json:"team_ids,omitempty"`
	DepartmentIDs []uint `json:"department_ids,omitempty"`
	Everyone      bool   `json:"everyone"`
}

// HasAudience reports whether the announcement targets anyone
func (r AnnouncementRequest) HasAudience() bool {
	return r.Everyone || len(r.TeamIDs) > 0 || len(r.DepartmentIDs) > 0
}
