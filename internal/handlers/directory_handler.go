package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/queue"
	"github.com/anonto42/hrops/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// DirectoryHandler lets admins manage departments, teams and accounts, and
// send announcements to them.
type DirectoryHandler struct {
	teamRepository repositories.TeamRepository
	userRepository repositories.UserRepository
	actions        queue.Enqueuer
}

func NewDirectoryHandler(teamRepo repositories.TeamRepository, userRepo repositories.UserRepository, actions queue.Enqueuer) *DirectoryHandler {
	return &DirectoryHandler{teamRepository: teamRepo, userRepository: userRepo, actions: actions}
}

func (h *DirectoryHandler) RegisterDirectoryRoutes(g *echo.Group, adminOnly echo.MiddlewareFunc) {
	g.GET("/departments", h.ListDepartments)
	g.GET("/teams/:id", h.GetTeam)

	admin := g.Group("", adminOnly)
	admin.POST("/departments", h.CreateDepartment)
	admin.POST("/teams", h.CreateTeam)
	admin.POST("/teams/:id/members", h.AddMembers)
	admin.PUT("/users/:id/role", h.UpdateRole)
	admin.PUT("/users/:id/active", h.UpdateActive)
	admin.POST("/announcements", h.Announce)
}

func (h *DirectoryHandler) ListDepartments(c echo.Context) error {
	departments, err := h.teamRepository.ListDepartments(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": departments})
}

func (h *DirectoryHandler) GetTeam(c echo.Context) error {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid team ID")
	}
	team, err := h.teamRepository.GetTeam(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Team not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": team})
}

func (h *DirectoryHandler) CreateDepartment(c echo.Context) error {
	var req models.CreateDepartmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	department := &models.Department{Name: req.Name}
	if err := h.teamRepository.CreateDepartment(ctx, department); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	err := h.actions.Enqueue(ctx, models.ActionDescriptor{
		ActorID:         getUserIDFromContext(c),
		NotifyAllAdmins: true,
		Type:            models.TypeDepartment,
		Message:         "created the " + department.Name + " department",
		RoleTag:         string(models.RoleAdmin),
	})
	if err != nil {
		return actionEnqueueError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": department})
}

func (h *DirectoryHandler) CreateTeam(c echo.Context) error {
	var req models.CreateTeamRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	team := &models.Team{Name: req.Name, DepartmentID: req.DepartmentID}
	err := h.teamRepository.CreateTeam(ctx, team, req.MemberIDs)
	if errors.Is(err, repositories.ErrDepartmentNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Department not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if len(team.Members) > 0 {
		err = h.actions.Enqueue(ctx, models.ActionDescriptor{
			ActorID: getUserIDFromContext(c),
			TeamIDs: []uint{team.ID},
			Type:    models.TypeTeam,
			Message: "added you to the " + team.Name + " team",
			RoleTag: string(models.RoleAdmin),
		})
		if err != nil {
			return actionEnqueueError(c, err)
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": team})
}

func (h *DirectoryHandler) AddMembers(c echo.Context) error {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid team ID")
	}
	var req models.AddMembersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	added, err := h.teamRepository.AddMembers(ctx, id, req.UserIDs)
	if errors.Is(err, repositories.ErrTeamNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Team not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if len(added) > 0 {
		team, err := h.teamRepository.GetTeam(ctx, id)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		err = h.actions.Enqueue(ctx, models.ActionDescriptor{
			ActorID:           getUserIDFromContext(c),
			ExtraRecipientIDs: added,
			Type:              models.TypeTeam,
			Message:           "added you to the " + team.Name + " team",
			RoleTag:           string(models.RoleAdmin),
		})
		if err != nil {
			return actionEnqueueError(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"added": added}})
}

func (h *DirectoryHandler) loadUser(c echo.Context) (*models.User, error) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	user, err := h.userRepository.GetUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return user, nil
}

func (h *DirectoryHandler) UpdateRole(c echo.Context) error {
	var req models.UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	user, err := h.loadUser(c)
	if err != nil {
		return err
	}
	if user.Role == req.Role {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": user})
	}

	user.Role = req.Role
	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	err = h.actions.Enqueue(c.Request().Context(), models.ActionDescriptor{
		ActorID:            getUserIDFromContext(c),
		PrimaryRecipientID: models.UintPtr(user.ID),
		Type:               models.TypeEmployees,
		Message:            "changed your role to " + string(req.Role),
		RoleTag:            string(models.RoleAdmin),
	})
	if err != nil {
		return actionEnqueueError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": user})
}

func (h *DirectoryHandler) UpdateActive(c echo.Context) error {
	var req models.UpdateActiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	user, err := h.loadUser(c)
	if err != nil {
		return err
	}
	if user.IsActive == *req.Active {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": user})
	}

	user.IsActive = *req.Active
	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	message := "deactivated your account"
	if user.IsActive {
		message = "reactivated your account"
	}
	err = h.actions.Enqueue(c.Request().Context(), models.ActionDescriptor{
		ActorID:            getUserIDFromContext(c),
		PrimaryRecipientID: models.UintPtr(user.ID),
		Type:               models.TypeAccount,
		Message:            message,
		RoleTag:            string(models.RoleAdmin),
	})
	if err != nil {
		return actionEnqueueError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": user})
}

// Announce sends an event notification to whole teams, departments or all
// active users
func (h *DirectoryHandler) Announce(c echo.Context) error {
	var req models.AnnouncementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !req.HasAudience() {
		return echo.NewHTTPError(http.StatusBadRequest, "Announcement needs teams, departments or everyone")
	}

	err := h.actions.Enqueue(c.Request().Context(), models.ActionDescriptor{
		ActorID:              getUserIDFromContext(c),
		NotifyAllActiveUsers: req.Everyone,
		TeamIDs:              req.TeamIDs,
		DepartmentIDs:        req.DepartmentIDs,
		Type:                 models.TypeEvent,
		Message:              req.Message,
		RoleTag:              string(models.RoleAdmin),
	})
	if err != nil {
		return actionEnqueueError(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"success": true})
}
