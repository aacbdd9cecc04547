package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/anonto42/hrops/backend/internal/models"
)

func (s *HandlerSuite) outboxActions() []models.ActionDescriptor {
	var entries []models.OutboxEntry
	s.Require().NoError(s.db.Order("id").Find(&entries).Error)
	out := make([]models.ActionDescriptor, len(entries))
	for i, e := range entries {
		s.Require().NoError(json.Unmarshal(e.Payload, &out[i]))
		s.Equal(e.ActionID, out[i].ID)
	}
	return out
}

func (s *HandlerSuite) applyLeave(as *models.User) models.LeaveRequest {
	rec := s.do(http.MethodPost, "/api/v1/leaves", echoMap{
		"start_date": "2026-03-02T00:00:00Z",
		"end_date":   "2026-03-04T00:00:00Z",
		"reason":     "family visit",
	}, as)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Data models.LeaveRequest `json:"data"`
	}
	s.decode(rec, &body)
	return body.Data
}

func (s *HandlerSuite) TestApplyLeaveWritesOutboxAction() {
	leave := s.applyLeave(s.alice)
	s.Equal(models.LeavePending, leave.Status)

	actions := s.outboxActions()
	s.Require().Len(actions, 1)
	desc := actions[0]
	s.NotEmpty(desc.ID)
	s.Equal(s.alice.ID, desc.ActorID)
	s.True(desc.NotifyAllAdmins)
	s.Equal(models.TypeLeaveRequest, desc.Type)
	s.Equal("applied for leave from Mar 2, 2026 to Mar 4, 2026", desc.Message)
	s.NotEmpty(desc.AdminMessage)
	s.Empty(s.actions.all(), "leave actions travel through the outbox only")
}

func (s *HandlerSuite) TestApplyLeaveNotifiesTeammatesButNotApplicant() {
	team := s.createTeam("Support", s.alice.ID, s.bob.ID)

	rec := s.do(http.MethodPost, "/api/v1/leaves", echoMap{
		"team_id":    team.ID,
		"start_date": "2026-03-02T00:00:00Z",
		"end_date":   "2026-03-04T00:00:00Z",
		"reason":     "family visit",
	}, s.alice)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	actions := s.outboxActions()
	s.Require().Len(actions, 1)
	s.Equal([]uint{s.bob.ID}, actions[0].ExtraRecipientIDs)
	s.Empty(actions[0].TeamIDs)
	s.True(actions[0].NotifyAllAdmins)
}

func (s *HandlerSuite) TestApplyLeaveRejectsInvertedRange() {
	rec := s.do(http.MethodPost, "/api/v1/leaves", echoMap{
		"start_date": "2026-03-04T00:00:00Z",
		"end_date":   "2026-03-02T00:00:00Z",
		"reason":     "oops",
	}, s.alice)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Empty(s.outboxActions())
}

func (s *HandlerSuite) TestReviewLeave() {
	leave := s.applyLeave(s.alice)
	approve := fmt.Sprintf("/api/v1/leaves/%d/approve", leave.ID)

	rec := s.do(http.MethodPost, approve, nil, s.bob)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, approve, nil, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	actions := s.outboxActions()
	s.Require().Len(actions, 2)
	review := actions[1]
	s.Require().NotNil(review.PrimaryRecipientID)
	s.Equal(s.alice.ID, *review.PrimaryRecipientID)
	s.Equal(s.admin.ID, review.ActorID)
	s.Equal(models.TypeLeave, review.Type)
	s.Equal("approved your leave request for Mar 2, 2026", review.Message)
	s.NotEqual(actions[0].ID, review.ID)

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/v1/leaves/%d/reject", leave.ID), nil, s.admin)
	s.Equal(http.StatusConflict, rec.Code)
	s.Len(s.outboxActions(), 2, "a failed review writes no action")

	rec = s.do(http.MethodPost, "/api/v1/leaves/999/approve", nil, s.admin)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestGetLeaveVisibility() {
	leave := s.applyLeave(s.alice)
	path := fmt.Sprintf("/api/v1/leaves/%d", leave.ID)

	s.Equal(http.StatusOK, s.do(http.MethodGet, path, nil, s.alice).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, path, nil, s.admin).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, path, nil, s.bob).Code)

	var body struct {
		Data []models.LeaveRequest `json:"data"`
	}
	s.decode(s.do(http.MethodGet, "/api/v1/leaves", nil, s.bob), &body)
	s.Empty(body.Data)
}
