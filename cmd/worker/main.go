package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anonto42/hrops/backend/internal/actions"
	"github.com/anonto42/hrops/backend/internal/app"
	"github.com/anonto42/hrops/backend/internal/handlers"
	"github.com/anonto42/hrops/backend/internal/push"
	"github.com/anonto42/hrops/backend/internal/realtime"
	"github.com/anonto42/hrops/backend/pkg/config"
	"github.com/anonto42/hrops/backend/pkg/firebase"
	"github.com/anonto42/hrops/backend/pkg/logger"
	redisclient "github.com/anonto42/hrops/backend/pkg/redis"
)

// The standalone worker consumes the broker queue. Realtime events reach
// API processes through Redis.
func main() {
	config.LoadEnv()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.Env).With(slog.String("component", "worker"))
	slog.SetDefault(log)

	if cfg.QueueDriver != app.DriverRabbitMQ {
		log.Error("standalone worker requires the rabbitmq queue driver", slog.String("driver", cfg.QueueDriver))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg)
	if err != nil {
		fatal(log, "failed to initialize databases", err)
	}
	defer db.CloseDB()

	var pusher actions.Pusher = push.Noop{}
	if fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath); err != nil {
		log.Warn("firebase disabled, push notifications are dropped", slog.Any("error", err))
	} else {
		pusher = push.NewFCM(fb.Messaging)
	}

	var emitter actions.Emitter = realtime.Discard{}
	if cfg.RedisURL != "" {
		rdb, err := redisclient.New(ctx, cfg.RedisURL)
		if err != nil {
			fatal(log, "failed to connect to redis", err)
		}
		defer rdb.Close()
		emitter = realtime.NewRedisEmitter(rdb, realtime.DefaultChannel)
	} else {
		log.Warn("REDIS_URL not set, realtime events are dropped")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	actionQueue, err := app.NewQueue(cfg, log, registry)
	if err != nil {
		fatal(log, "failed to open action queue", err)
	}
	defer actionQueue.Close()

	worker, err := app.NewWorker(db.Postgres, db.MongoDB, emitter, pusher, log, registry)
	if err != nil {
		fatal(log, "failed to build action worker", err)
	}

	metricsServer := echo.New()
	metricsServer.HideBanner = true
	metricsServer.GET("/health", handlers.HealthCheck)
	metricsServer.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	go func() {
		if err := metricsServer.Start(":" + cfg.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", slog.Any("error", err))
		}
	}()

	log.Info("worker started", slog.String("queue", cfg.ActionQueue), slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx, actionQueue); err != nil {
		log.Error("worker stopped", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	log.Info("worker shut down")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
