package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/queue"
	"github.com/anonto42/hrops/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
	actions        queue.Enqueuer
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, actions queue.Enqueuer) *UserHandler {
	return &UserHandler{userRepository: userRepo, actions: actions}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.PUT("/profile/device-token", h.RegisterDeviceToken)
	g.DELETE("/profile/device-token", h.ClearDeviceToken)
	g.GET("/users/:id", h.GetUser)
}

func (h *UserHandler) currentUser(c echo.Context) (*models.User, error) {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	user, err := h.userRepository.GetUserByID(currentUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return user, nil
}

func (h *UserHandler) GetUser(c echo.Context) error {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	user, err := h.userRepository.GetUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user.ToCompact())
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's profile and records an
// account action with no recipients.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}

	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	err = h.actions.Enqueue(c.Request().Context(), models.ActionDescriptor{
		ActorID: user.ID,
		Type:    models.TypeAccount,
		Message: "updated their profile",
		RoleTag: string(user.Role),
	})
	if err != nil {
		return actionEnqueueError(c, err)
	}

	return c.JSON(http.StatusOK, user)
}

// RegisterDeviceToken stores the caller's FCM token
func (h *UserHandler) RegisterDeviceToken(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.DeviceTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.userRepository.UpdateFCMToken(currentUserID, req.Token); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ClearDeviceToken stops push notifications for the caller, e.g. on logout
func (h *UserHandler) ClearDeviceToken(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.userRepository.UpdateFCMToken(currentUserID, ""); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// actionEnqueueError reports a failed side effect. The primary write has
// already been committed and is not rolled back.
func actionEnqueueError(c echo.Context, err error) error {
	slog.Error("enqueue action failed",
		slog.String("path", c.Path()),
		slog.Any("error", err))
	if errors.Is(err, queue.ErrInvalidDescriptor) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to record action")
	}
	return echo.NewHTTPError(http.StatusBadGateway, "Saved, but notifications could not be queued")
}
