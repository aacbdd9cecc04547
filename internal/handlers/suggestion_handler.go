package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/queue"
	"github.com/anonto42/hrops/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// SuggestionHandler handles the suggestion box. Actions are enqueued
// directly after the primary write.
type SuggestionHandler struct {
	suggestionRepository repositories.SuggestionRepository
	actions              queue.Enqueuer
}

func NewSuggestionHandler(suggestionRepo repositories.SuggestionRepository, actions queue.Enqueuer) *SuggestionHandler {
	return &SuggestionHandler{suggestionRepository: suggestionRepo, actions: actions}
}

func (h *SuggestionHandler) RegisterSuggestionRoutes(g *echo.Group) {
	g.POST("/suggestions", h.CreateSuggestion)
	g.GET("/suggestions", h.GetSuggestions)
	g.POST("/suggestions/:id/like", h.LikeSuggestion)
}

// present hides the author of anonymous suggestions from everyone else
func present(s models.Suggestion, viewerID uint) models.Suggestion {
	if s.Anonymous && s.AuthorID != viewerID {
		s.AuthorID = 0
	}
	return s
}

// CreateSuggestion posts a suggestion and tells every active user about it
func (h *SuggestionHandler) CreateSuggestion(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateSuggestionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	suggestion := &models.Suggestion{
		AuthorID:  currentUserID,
		Anonymous: req.Anonymous,
		Content:   req.Content,
	}
	if err := h.suggestionRepository.CreateSuggestion(ctx, suggestion); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	err := h.actions.Enqueue(ctx, models.ActionDescriptor{
		ActorID:              currentUserID,
		NotifyAllActiveUsers: true,
		Type:                 models.TypeSuggestions,
		Message:              "posted a new suggestion",
		HideInLog:            req.Anonymous,
		HideInNotification:   req.Anonymous,
		RoleTag:              string(getRoleFromContext(c)),
	})
	if err != nil {
		return actionEnqueueError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": suggestion})
}

func (h *SuggestionHandler) GetSuggestions(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, limit := parsePagination(c)
	suggestions, err := h.suggestionRepository.GetSuggestions(c.Request().Context(), int64((page-1)*limit), int64(limit))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	out := make([]models.Suggestion, len(suggestions))
	for i, s := range suggestions {
		out[i] = present(s, currentUserID)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": out})
}

// LikeSuggestion records a like and notifies the author. Liking your own
// suggestion notifies nobody.
func (h *SuggestionHandler) LikeSuggestion(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	suggestion, err := h.suggestionRepository.Like(ctx, c.Param("id"), currentUserID)
	switch {
	case errors.Is(err, repositories.ErrSuggestionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Suggestion not found")
	case errors.Is(err, repositories.ErrAlreadyLiked):
		return echo.NewHTTPError(http.StatusConflict, "Suggestion already liked")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if suggestion.AuthorID != currentUserID {
		err = h.actions.Enqueue(ctx, models.ActionDescriptor{
			ActorID:            currentUserID,
			PrimaryRecipientID: models.UintPtr(suggestion.AuthorID),
			Type:               models.TypeSuggestions,
			Message:            "liked your suggestion",
			RoleTag:            string(getRoleFromContext(c)),
		})
		if err != nil {
			return actionEnqueueError(c, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": present(*suggestion, currentUserID)})
}
