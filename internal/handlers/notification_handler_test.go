package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/anonto42/hrops/backend/internal/models"
)

func (s *HandlerSuite) seedNotification(recipient *models.User, actor *models.User, read bool, age time.Duration) *models.Notification {
	n := &models.Notification{
		ActionID:    "action-" + recipient.Name + age.String(),
		RecipientID: recipient.ID,
		Type:        models.TypeLeave,
		Message:     "approved your leave request",
		Read:        read,
		CreatedAt:   time.Now().UTC().Add(-age),
	}
	if actor != nil {
		n.ActorID = models.UintPtr(actor.ID)
	}
	s.Require().NoError(s.notifications.CreateNotification(context.Background(), n))
	return n
}

type notificationListBody struct {
	Success bool `json:"success"`
	Data    struct {
		Notifications []models.EnrichedNotification `json:"notifications"`
	} `json:"data"`
	Meta struct {
		TotalItems int `json:"totalItems"`
	} `json:"meta"`
}

func (s *HandlerSuite) TestListNotificationsUnreadFirstWithActors() {
	s.seedNotification(s.alice, s.admin, true, time.Minute)
	unread := s.seedNotification(s.alice, nil, false, time.Hour)
	s.seedNotification(s.bob, s.admin, false, time.Minute)

	rec := s.do(http.MethodGet, "/api/v1/notifications", nil, s.alice)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body notificationListBody
	s.decode(rec, &body)
	s.True(body.Success)
	s.Equal(2, body.Meta.TotalItems)
	s.Require().Len(body.Data.Notifications, 2)

	first, second := body.Data.Notifications[0], body.Data.Notifications[1]
	s.Equal(unread.ID, first.ID)
	s.Nil(first.Actor, "hidden actor stays anonymous")
	s.Require().NotNil(second.Actor)
	s.Equal("Ada Admin", second.Actor.Name)
}

func (s *HandlerSuite) TestUnreadCount() {
	s.seedNotification(s.alice, s.admin, false, time.Minute)
	s.seedNotification(s.alice, s.admin, false, time.Hour)
	s.seedNotification(s.alice, s.admin, true, 2*time.Hour)

	var body struct {
		Data models.UnreadSummary `json:"data"`
	}
	rec := s.do(http.MethodGet, "/api/v1/notifications/unread-count", nil, s.alice)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &body)
	s.Equal(models.UnreadSummary{Count: 2, HasUnread: true}, body.Data)

	rec = s.do(http.MethodGet, "/api/v1/notifications/unread-count", nil, s.bob)
	s.decode(rec, &body)
	s.Equal(models.UnreadSummary{Count: 0, HasUnread: false}, body.Data)
}

func (s *HandlerSuite) TestMarkAsReadOwnerOnly() {
	n := s.seedNotification(s.alice, s.admin, false, time.Minute)
	path := "/api/v1/notifications/" + n.ID.Hex() + "/read"

	rec := s.do(http.MethodPut, path, nil, s.bob)
	s.Equal(http.StatusForbidden, rec.Code)

	count, err := s.notifications.GetUnreadCount(context.Background(), s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), count, "a rejected call leaves the notification unread")

	rec = s.do(http.MethodPut, path, nil, s.alice)
	s.Equal(http.StatusOK, rec.Code)

	count, err = s.notifications.GetUnreadCount(context.Background(), s.alice.ID)
	s.Require().NoError(err)
	s.Zero(count)

	rec = s.do(http.MethodPut, "/api/v1/notifications/000000000000000000000000/read", nil, s.alice)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestMarkAllAsReadOnlyTouchesCaller() {
	s.seedNotification(s.alice, s.admin, false, time.Minute)
	s.seedNotification(s.alice, s.admin, false, time.Hour)
	s.seedNotification(s.bob, s.admin, false, time.Minute)

	rec := s.do(http.MethodPut, "/api/v1/notifications/read-all", nil, s.alice)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Updated int64 `json:"updated"`
		} `json:"data"`
	}
	s.decode(rec, &body)
	s.Equal(int64(2), body.Data.Updated)

	bobCount, err := s.notifications.GetUnreadCount(context.Background(), s.bob.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), bobCount)

	rec = s.do(http.MethodPut, "/api/v1/notifications/read-all", nil, s.alice)
	s.decode(rec, &body)
	s.Zero(body.Data.Updated)
}

func (s *HandlerSuite) TestGroupedNotifications() {
	s.seedNotification(s.alice, s.admin, false, time.Minute)
	s.seedNotification(s.alice, s.admin, true, 10*24*time.Hour)

	rec := s.do(http.MethodGet, "/api/v1/notifications/grouped", nil, s.alice)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Notifications map[string][]models.EnrichedNotification `json:"notifications"`
			UnreadCount   int64                                    `json:"unreadCount"`
		} `json:"data"`
	}
	s.decode(rec, &body)
	s.Len(body.Data.Notifications["older"], 1)
	s.Equal(int64(1), body.Data.UnreadCount)
	total := 0
	for _, group := range body.Data.Notifications {
		total += len(group)
	}
	s.Equal(2, total)
}

func (s *HandlerSuite) TestMyActionsExcludesHiddenEntries() {
	s.logs.entries = []models.LogEntry{
		{ActionID: "a1", ActorID: models.UintPtr(s.alice.ID), Type: models.TypeLeaveRequest, Message: "applied for leave"},
		{ActionID: "a2", ActorID: nil, Type: models.TypeSuggestions, Message: "posted a new suggestion"},
		{ActionID: "a3", ActorID: models.UintPtr(s.bob.ID), Type: models.TypeAccount, Message: "updated their profile"},
	}

	rec := s.do(http.MethodGet, "/api/v1/actions", nil, s.alice)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Actions []models.LogEntry `json:"actions"`
		} `json:"data"`
	}
	s.decode(rec, &body)
	s.Require().Len(body.Data.Actions, 1)
	s.Equal("a1", body.Data.Actions[0].ActionID)
}
