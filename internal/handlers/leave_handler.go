package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

const leaveDateLayout = "Jan 2, 2006"

// LeaveHandler handles leave applications and reviews. Every change is
// written together with its notification action through the outbox.
type LeaveHandler struct {
	leaveRepository repositories.LeaveRepository
	teamMembers     TeamMemberLister
}

// TeamMemberLister lists the members of a team.
type TeamMemberLister interface {
	TeamMemberIDs(ctx context.Context, teamID uint) ([]uint, error)
}

func NewLeaveHandler(leaveRepo repositories.LeaveRepository, teamMembers TeamMemberLister) *LeaveHandler {
	return &LeaveHandler{leaveRepository: leaveRepo, teamMembers: teamMembers}
}

// RegisterLeaveRoutes registers leave routes; adminOnly guards reviews
func (h *LeaveHandler) RegisterLeaveRoutes(g *echo.Group, adminOnly echo.MiddlewareFunc) {
	g.POST("/leaves", h.ApplyLeave)
	g.GET("/leaves", h.GetMyLeaves)
	g.GET("/leaves/:id", h.GetLeave)
	g.POST("/leaves/:id/approve", h.ApproveLeave, adminOnly)
	g.POST("/leaves/:id/reject", h.RejectLeave, adminOnly)
}

// leaveAppliedAction notifies the admins and the applicant's teammates.
// Teammates are listed explicitly so the applicant is left out.
func leaveAppliedAction(actorID uint, teammates []uint) repositories.ActionBuilder {
	return func(leave *models.LeaveRequest) models.ActionDescriptor {
		period := fmt.Sprintf("%s to %s", leave.StartDate.Format(leaveDateLayout), leave.EndDate.Format(leaveDateLayout))
		desc := models.ActionDescriptor{
			ActorID:         actorID,
			NotifyAllAdmins: true,
			Type:            models.TypeLeaveRequest,
			Message:         "applied for leave from " + period,
			AdminMessage:    "applied for leave from " + period + " and is waiting for your review",
			RoleTag:         string(models.RoleEmployee),
		}
		if len(teammates) > 0 {
			desc.ExtraRecipientIDs = teammates
		}
		return desc
	}
}

func leaveReviewedAction(reviewerID uint, verb string) repositories.ActionBuilder {
	return func(leave *models.LeaveRequest) models.ActionDescriptor {
		return models.ActionDescriptor{
			ActorID:            reviewerID,
			PrimaryRecipientID: models.UintPtr(leave.UserID),
			Type:               models.TypeLeave,
			Message:            fmt.Sprintf("%s your leave request for %s", verb, leave.StartDate.Format(leaveDateLayout)),
			RoleTag:            string(models.RoleAdmin),
		}
	}
}

// ApplyLeave creates a pending leave request for the caller
func (h *LeaveHandler) ApplyLeave(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.ApplyLeaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var teammates []uint
	if req.TeamID != nil {
		members, err := h.teamMembers.TeamMemberIDs(c.Request().Context(), *req.TeamID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		for _, id := range members {
			if id != currentUserID {
				teammates = append(teammates, id)
			}
		}
	}

	leave := &models.LeaveRequest{
		UserID:    currentUserID,
		TeamID:    req.TeamID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
	}
	if err := h.leaveRepository.CreateWithAction(c.Request().Context(), leave, leaveAppliedAction(currentUserID, teammates)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": leave})
}

func (h *LeaveHandler) GetMyLeaves(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	leaves, err := h.leaveRepository.GetByUserID(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": leaves})
}

// GetLeave is visible to the applicant and to admins
func (h *LeaveHandler) GetLeave(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid leave ID")
	}

	leave, err := h.leaveRepository.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaveNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Leave request not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if leave.UserID != currentUserID && getRoleFromContext(c) != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "Cannot view another user's leave request")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": leave})
}

func (h *LeaveHandler) ApproveLeave(c echo.Context) error {
	return h.review(c, models.LeaveApproved, "approved")
}

func (h *LeaveHandler) RejectLeave(c echo.Context) error {
	return h.review(c, models.LeaveRejected, "rejected")
}

func (h *LeaveHandler) review(c echo.Context, status models.LeaveStatus, verb string) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid leave ID")
	}

	leave, err := h.leaveRepository.Review(c.Request().Context(), id, currentUserID, status, leaveReviewedAction(currentUserID, verb))
	switch {
	case errors.Is(err, repositories.ErrLeaveNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Leave request not found")
	case errors.Is(err, repositories.ErrLeaveNotPending):
		return echo.NewHTTPError(http.StatusConflict, "Leave request already reviewed")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": leave})
}
