package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/queue"
)

func (s *HandlerSuite) TestCreateAnonymousSuggestionHidesActor() {
	rec := s.do(http.MethodPost, "/api/v1/suggestions", echoMap{"content": "Standing desks please", "anonymous": true}, s.alice)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	descs := s.actions.all()
	s.Require().Len(descs, 1)
	desc := descs[0]
	s.Equal(s.alice.ID, desc.ActorID)
	s.True(desc.NotifyAllActiveUsers)
	s.True(desc.HideInLog)
	s.True(desc.HideInNotification)
	s.Equal(models.TypeSuggestions, desc.Type)
}

func (s *HandlerSuite) TestCreateSuggestionQueueDownKeepsSuggestion() {
	s.actions.err = queue.ErrQueueUnavailable

	rec := s.do(http.MethodPost, "/api/v1/suggestions", echoMap{"content": "Fruit on Fridays"}, s.bob)
	s.Equal(http.StatusBadGateway, rec.Code)

	stored, err := s.suggestions.GetSuggestions(context.Background(), 0, 10)
	s.Require().NoError(err)
	s.Len(stored, 1, "the primary write is not rolled back")
}

func (s *HandlerSuite) TestCreateSuggestionValidation() {
	rec := s.do(http.MethodPost, "/api/v1/suggestions", echoMap{"content": ""}, s.bob)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Empty(s.actions.all())
}

func (s *HandlerSuite) TestListSuggestionsMasksAnonymousAuthor() {
	ctx := context.Background()
	s.Require().NoError(s.suggestions.CreateSuggestion(ctx, &models.Suggestion{AuthorID: s.alice.ID, Anonymous: true, Content: "quiet room"}))

	var body struct {
		Data []models.Suggestion `json:"data"`
	}
	rec := s.do(http.MethodGet, "/api/v1/suggestions", nil, s.bob)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &body)
	s.Require().Len(body.Data, 1)
	s.Zero(body.Data[0].AuthorID)

	rec = s.do(http.MethodGet, "/api/v1/suggestions", nil, s.alice)
	s.decode(rec, &body)
	s.Equal(s.alice.ID, body.Data[0].AuthorID)
}

func (s *HandlerSuite) TestLikeSuggestionNotifiesAuthor() {
	suggestion := &models.Suggestion{AuthorID: s.alice.ID, Content: "bike racks"}
	s.Require().NoError(s.suggestions.CreateSuggestion(context.Background(), suggestion))
	path := "/api/v1/suggestions/" + suggestion.ID.Hex() + "/like"

	rec := s.do(http.MethodPost, path, nil, s.bob)
	s.Require().Equal(http.StatusOK, rec.Code)
	desc := s.actions.last()
	s.Require().NotNil(desc.PrimaryRecipientID)
	s.Equal(s.alice.ID, *desc.PrimaryRecipientID)
	s.Equal(s.bob.ID, desc.ActorID)

	rec = s.do(http.MethodPost, path, nil, s.bob)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, path, nil, s.alice)
	s.Equal(http.StatusOK, rec.Code)
	s.Len(s.actions.all(), 1, "liking your own suggestion notifies nobody")

	rec = s.do(http.MethodPost, "/api/v1/suggestions/unknown/like", nil, s.bob)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestUpdateProfileRecordsLogOnlyAction() {
	rec := s.do(http.MethodPut, "/api/v1/profile", echoMap{"name": "Alice Liddell"}, s.alice)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	desc := s.actions.last()
	s.Equal(models.TypeAccount, desc.Type)
	s.False(desc.HasRecipientCriteria())

	user, err := s.users.GetUserByID(s.alice.ID)
	s.Require().NoError(err)
	s.Equal("Alice Liddell", user.Name)
}

func (s *HandlerSuite) TestDeviceTokenLifecycle() {
	rec := s.do(http.MethodPut, "/api/v1/profile/device-token", echoMap{"token": "tok-1"}, s.bob)
	s.Require().Equal(http.StatusOK, rec.Code)
	user, err := s.users.GetUserByID(s.bob.ID)
	s.Require().NoError(err)
	s.Equal("tok-1", user.FCMToken)

	rec = s.do(http.MethodDelete, "/api/v1/profile/device-token", nil, s.bob)
	s.Require().Equal(http.StatusNoContent, rec.Code)
	user, err = s.users.GetUserByID(s.bob.ID)
	s.Require().NoError(err)
	s.Empty(user.FCMToken)
}
