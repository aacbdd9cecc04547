package handlers

import (
	"net/http"

	"github.com/anonto42/hrops/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// LogHandler serves the caller's own action history
type LogHandler struct {
	logRepository repositories.LogRepository
}

func NewLogHandler(logRepo repositories.LogRepository) *LogHandler {
	return &LogHandler{logRepository: logRepo}
}

func (h *LogHandler) RegisterLogRoutes(g *echo.Group) {
	g.GET("/actions", h.GetMyActions)
}

// GetMyActions lists the actions the caller performed, newest first.
// Entries logged with a hidden actor are not included.
func (h *LogHandler) GetMyActions(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, limit := parsePagination(c)
	entries, total, err := h.logRepository.GetByActorID(c.Request().Context(), currentUserID, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"actions": entries},
		"meta":    paginationMeta(page, limit, total),
	})
}
