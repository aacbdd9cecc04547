// Package app assembles the action pipeline shared by the API server and
// the standalone worker.
package app

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/anonto42/hrops/backend/internal/actions"
	"github.com/anonto42/hrops/backend/internal/queue"
	"github.com/anonto42/hrops/backend/internal/repositories"
	"github.com/anonto42/hrops/backend/pkg/config"
)

const (
	DriverRabbitMQ = "rabbitmq"
	DriverMemory   = "memory"

	memoryCapacity = 1024
)

// RetryPolicy builds the queue retry policy from configuration.
func RetryPolicy(cfg *config.Config) queue.RetryPolicy {
	p := queue.DefaultRetryPolicy()
	if cfg.WorkerMaxAttempts > 0 {
		p.MaxAttempts = cfg.WorkerMaxAttempts
	}
	if cfg.RetryInitialInterval > 0 {
		p.InitialInterval = cfg.RetryInitialInterval
	}
	if cfg.RetryMaxInterval > 0 {
		p.MaxInterval = cfg.RetryMaxInterval
	}
	return p
}

// NewQueue opens the configured queue driver. Closing the queue releases
// the broker connection.
func NewQueue(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (queue.Queue, error) {
	opts := []queue.Option{
		queue.WithLogger(logger),
		queue.WithMetrics(queue.NewMetrics(reg)),
		queue.WithRetryPolicy(RetryPolicy(cfg)),
	}

	switch cfg.QueueDriver {
	case DriverRabbitMQ:
		client, err := queue.NewClient(cfg.RabbitMQURL, queue.WithClientLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		q, err := queue.NewRabbitQueue(client, cfg.ActionQueue, cfg.WorkerConcurrency, opts...)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		logger.Info("action queue ready", slog.String("driver", DriverRabbitMQ), slog.String("queue", cfg.ActionQueue))
		return q, nil
	case DriverMemory:
		logger.Warn("using in-memory action queue; queued actions are lost on restart")
		return queue.NewMemoryQueue(memoryCapacity, cfg.WorkerConcurrency, opts...), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
	}
}

// NewWorker wires the resolver, dispatcher and audit logger onto the
// stores. Emitter and pusher differ between the embedded and the
// standalone worker.
func NewWorker(sqlDB *gorm.DB, mongoDB *mongo.Database, emitter actions.Emitter, pusher actions.Pusher, logger *slog.Logger, reg prometheus.Registerer) (*actions.Worker, error) {
	directory := repositories.NewPostgresUserRepository(sqlDB)
	metrics := actions.NewMetrics(reg)

	dispatcher, err := actions.NewDispatcher(
		directory,
		repositories.NewMongoNotificationRepository(mongoDB),
		emitter,
		pusher,
		actions.WithDispatcherLogger(logger),
		actions.WithDispatcherMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}

	return actions.NewWorker(
		actions.NewResolver(directory),
		dispatcher,
		actions.NewAuditLogger(repositories.NewMongoLogRepository(mongoDB)),
		actions.WithWorkerLogger(logger),
		actions.WithWorkerMetrics(metrics),
	), nil
}
