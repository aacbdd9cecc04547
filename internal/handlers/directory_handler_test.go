package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/hrops/backend/internal/models"
)

func (s *HandlerSuite) createTeam(name string, members ...uint) models.Team {
	rec := s.do(http.MethodPost, "/api/v1/teams", echoMap{"name": name, "member_ids": members}, s.admin)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Data models.Team `json:"data"`
	}
	s.decode(rec, &body)
	return body.Data
}

func (s *HandlerSuite) TestCreateDepartmentNotifiesAdmins() {
	rec := s.do(http.MethodPost, "/api/v1/departments", echoMap{"name": "Engineering"}, s.alice)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/departments", echoMap{"name": "Engineering"}, s.admin)
	s.Require().Equal(http.StatusCreated, rec.Code)

	desc := s.actions.last()
	s.True(desc.NotifyAllAdmins)
	s.Equal(models.TypeDepartment, desc.Type)
	s.Equal("created the Engineering department", desc.Message)

	var body struct {
		Data []models.Department `json:"data"`
	}
	s.decode(s.do(http.MethodGet, "/api/v1/departments", nil, s.bob), &body)
	s.Require().Len(body.Data, 1)
	s.Equal("Engineering", body.Data[0].Name)
}

func (s *HandlerSuite) TestCreateTeamNotifiesMembers() {
	team := s.createTeam("Platform", s.alice.ID, s.bob.ID, 999)
	s.Len(team.Members, 2, "unknown users are ignored")

	desc := s.actions.last()
	s.Equal([]uint{team.ID}, desc.TeamIDs)
	s.Equal(models.TypeTeam, desc.Type)
	s.Equal("added you to the Platform team", desc.Message)
}

func (s *HandlerSuite) TestCreateEmptyTeamEnqueuesNothing() {
	s.createTeam("Ghosts")
	s.Empty(s.actions.all())
}

func (s *HandlerSuite) TestCreateTeamUnknownDepartment() {
	rec := s.do(http.MethodPost, "/api/v1/teams", echoMap{"name": "Lost", "department_id": 42}, s.admin)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestAddMembersNotifiesOnlyNewcomers() {
	team := s.createTeam("Support", s.alice.ID)
	carol := s.createUser("Carol", "carol@example.com", models.RoleEmployee)

	rec := s.do(http.MethodPost, fmt.Sprintf("/api/v1/teams/%d/members", team.ID), echoMap{"user_ids": []uint{s.alice.ID, carol.ID}}, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	desc := s.actions.last()
	s.Equal([]uint{carol.ID}, desc.ExtraRecipientIDs)
	s.Empty(desc.TeamIDs)

	count := len(s.actions.all())
	rec = s.do(http.MethodPost, fmt.Sprintf("/api/v1/teams/%d/members", team.ID), echoMap{"user_ids": []uint{carol.ID}}, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(s.actions.all(), count, "no newcomers, no action")

	rec = s.do(http.MethodPost, "/api/v1/teams/999/members", echoMap{"user_ids": []uint{carol.ID}}, s.admin)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestUpdateRole() {
	path := fmt.Sprintf("/api/v1/users/%d/role", s.bob.ID)

	rec := s.do(http.MethodPut, path, echoMap{"role": "superuser"}, s.admin)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, path, echoMap{"role": "admin"}, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	desc := s.actions.last()
	s.Equal(models.TypeEmployees, desc.Type)
	s.Require().NotNil(desc.PrimaryRecipientID)
	s.Equal(s.bob.ID, *desc.PrimaryRecipientID)

	rec = s.do(http.MethodPut, path, echoMap{"role": "admin"}, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(s.actions.all(), 1, "unchanged role enqueues nothing")

	user, err := s.users.GetUserByID(s.bob.ID)
	s.Require().NoError(err)
	s.True(user.IsAdmin())
}

func (s *HandlerSuite) TestDeactivateUser() {
	rec := s.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d/active", s.bob.ID), echoMap{"active": false}, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	user, err := s.users.GetUserByID(s.bob.ID)
	s.Require().NoError(err)
	s.False(user.IsActive)

	desc := s.actions.last()
	s.Equal(models.TypeAccount, desc.Type)
	s.Equal("deactivated your account", desc.Message)

	rec = s.do(http.MethodPut, "/api/v1/users/999/active", echoMap{"active": true}, s.admin)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d/active", s.bob.ID), echoMap{}, s.admin)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestAnnouncements() {
	rec := s.do(http.MethodPost, "/api/v1/announcements", echoMap{"message": "Office closed Friday"}, s.admin)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/announcements", echoMap{"message": "Office closed Friday", "everyone": true}, s.admin)
	s.Require().Equal(http.StatusAccepted, rec.Code)
	desc := s.actions.last()
	s.True(desc.NotifyAllActiveUsers)
	s.Equal(models.TypeEvent, desc.Type)

	rec = s.do(http.MethodPost, "/api/v1/announcements", echoMap{"message": "Design review at 3", "department_ids": []uint{1}}, s.admin)
	s.Require().Equal(http.StatusAccepted, rec.Code)
	s.Equal([]uint{1}, s.actions.last().DepartmentIDs)

	rec = s.do(http.MethodPost, "/api/v1/announcements", echoMap{"message": "hello", "everyone": true}, s.bob)
	s.Equal(http.StatusForbidden, rec.Code)
}
