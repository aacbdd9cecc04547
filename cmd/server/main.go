package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/anonto42/hrops/backend/internal/actions"
	"github.com/anonto42/hrops/backend/internal/app"
	"github.com/anonto42/hrops/backend/internal/handlers"
	"github.com/anonto42/hrops/backend/internal/outbox"
	"github.com/anonto42/hrops/backend/internal/push"
	"github.com/anonto42/hrops/backend/internal/realtime"
	"github.com/anonto42/hrops/backend/internal/repositories"
	"github.com/anonto42/hrops/backend/internal/router"
	"github.com/anonto42/hrops/backend/internal/validators"
	"github.com/anonto42/hrops/backend/pkg/config"
	"github.com/anonto42/hrops/backend/pkg/firebase"
	"github.com/anonto42/hrops/backend/pkg/logger"
	redisclient "github.com/anonto42/hrops/backend/pkg/redis"
)

func main() {
	// Load configuration
	config.LoadEnv()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		fatal(log, "failed to initialize databases", err)
	}
	defer db.CloseDB()

	if err := config.Migrate(db.Postgres); err != nil {
		fatal(log, "failed to migrate SQL schema", err)
	}

	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	outboxRepo := repositories.NewOutboxRepository(db.Postgres)
	notificationRepo := repositories.NewMongoNotificationRepository(db.MongoDB)
	logRepo := repositories.NewMongoLogRepository(db.MongoDB)
	if err := config.EnsureIndexes(ctx, notificationRepo, logRepo); err != nil {
		fatal(log, "failed to create MongoDB indexes", err)
	}

	// Firebase is optional locally: without it Firebase login is off and
	// push notifications are dropped.
	var (
		firebaseAuth handlers.IDTokenVerifier
		pusher       actions.Pusher = push.Noop{}
	)
	if fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath); err != nil {
		log.Warn("firebase disabled", slog.Any("error", err))
	} else {
		firebaseAuth = fb.AuthClient
		pusher = push.NewFCM(fb.Messaging)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	actionQueue, err := app.NewQueue(cfg, log, registry)
	if err != nil {
		fatal(log, "failed to open action queue", err)
	}

	hub := realtime.NewHub(log, cfg.AllowedOrigins...)
	var wg sync.WaitGroup
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// A failed background task takes the process down.
			if err := run(ctx); err != nil {
				log.Error("background task stopped", slog.String("task", name), slog.Any("error", err))
				stop()
			}
		}()
	}

	relay := outbox.NewRelay(outboxRepo, actionQueue, cfg.OutboxPollInterval, cfg.OutboxBatchSize, log)
	start("outbox", relay.Run)

	if cfg.RedisURL != "" {
		rdb, err := redisclient.New(ctx, cfg.RedisURL)
		if err != nil {
			fatal(log, "failed to connect to redis", err)
		}
		defer rdb.Close()
		start("realtime-relay", realtime.NewRelay(rdb, realtime.DefaultChannel, hub, log).Run)
	}

	// Nothing else can drain the in-memory queue.
	if cfg.EmbeddedWorker || cfg.QueueDriver == app.DriverMemory {
		worker, err := app.NewWorker(db.Postgres, db.MongoDB, hub, pusher, log, registry)
		if err != nil {
			fatal(log, "failed to build action worker", err)
		}
		start("worker", func(ctx context.Context) error { return worker.Run(ctx, actionQueue) })
		log.Info("embedded action worker started")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, log, cfg.AllowedOrigins)

	router.SetupRoutes(e, router.Dependencies{
		JWTSecret:     cfg.JWTSecret,
		FirebaseAuth:  firebaseAuth,
		Users:         userRepo,
		Directory:     userRepo,
		Teams:         repositories.NewPostgresTeamRepository(db.Postgres),
		Leaves:        repositories.NewPostgresLeaveRepository(db.Postgres, outboxRepo),
		Suggestions:   repositories.NewMongoSuggestionRepository(db.MongoDB),
		Notifications: notificationRepo,
		Logs:          logRepo,
		Actions:       actionQueue,
		Sockets:       hub,
		Gatherer:      registry,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
	}
	wg.Wait()
	if err := actionQueue.Close(); err != nil {
		log.Warn("closing action queue", slog.Any("error", err))
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
