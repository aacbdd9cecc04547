package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/anonto42/hrops/backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// SocketServer serves one authenticated websocket connection
type SocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID uint) error
}

// WebSocketHandler authenticates realtime connections. Browsers cannot set
// headers on a websocket handshake, so the token may also come in the query.
type WebSocketHandler struct {
	sockets   SocketServer
	jwtSecret string
}

func NewWebSocketHandler(sockets SocketServer, jwtSecret string) *WebSocketHandler {
	return &WebSocketHandler{sockets: sockets, jwtSecret: jwtSecret}
}

func (h *WebSocketHandler) RegisterWebSocketRoutes(g *echo.Group) {
	g.GET("/ws", h.Connect)
}

func (h *WebSocketHandler) Connect(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
	}

	claims, err := middleware.ParseToken(h.jwtSecret, token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	// The upgrader has already answered the request when this fails.
	if err := h.sockets.ServeWS(c.Response(), c.Request(), claims.UserID); err != nil {
		slog.Warn("websocket upgrade failed",
			slog.Uint64("user_id", uint64(claims.UserID)),
			slog.Any("error", err))
	}
	return nil
}
