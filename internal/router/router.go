package router

import (
	"log/slog"

	"github.com/anonto42/hrops/backend/internal/handlers"
	"github.com/anonto42/hrops/backend/internal/middleware"
	"github.com/anonto42/hrops/backend/internal/queue"
	"github.com/anonto42/hrops/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the HTTP layer is built from
type Dependencies struct {
	JWTSecret    string
	FirebaseAuth handlers.IDTokenVerifier

	Users         repositories.UserRepository
	Directory     repositories.DirectoryRepository
	Teams         repositories.TeamRepository
	Leaves        repositories.LeaveRepository
	Suggestions   repositories.SuggestionRepository
	Notifications repositories.NotificationRepository
	Logs          repositories.LogRepository

	Actions  queue.Enqueuer
	Sockets  handlers.SocketServer
	Gatherer prometheus.Gatherer
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	if deps.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	handlers.NewAuthHandler(deps.Users, deps.FirebaseAuth, deps.JWTSecret).RegisterAuthRoutes(authGroup)

	// The websocket authenticates with a query token, so it sits outside
	// the header-based JWT group.
	if deps.Sockets != nil {
		handlers.NewWebSocketHandler(deps.Sockets, deps.JWTSecret).RegisterWebSocketRoutes(e.Group("/api/v1"))
	}

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))

	handlers.NewUserHandler(deps.Users, deps.Actions).RegisterProfileRoutes(api)
	handlers.NewDirectoryHandler(deps.Teams, deps.Users, deps.Actions).RegisterDirectoryRoutes(api, middleware.RequireAdmin)
	handlers.NewLeaveHandler(deps.Leaves, deps.Directory).RegisterLeaveRoutes(api, middleware.RequireAdmin)
	handlers.NewSuggestionHandler(deps.Suggestions, deps.Actions).RegisterSuggestionRoutes(api)
	handlers.NewNotificationHandler(deps.Notifications, deps.Users).RegisterNotificationRoutes(api)
	handlers.NewLogHandler(deps.Logs).RegisterLogRoutes(api)

	slog.Info("routes configured", slog.Int("count", len(e.Routes())))
}

