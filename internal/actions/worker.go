package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/queue"
)

// ErrPartialDispatch is returned when at least one recipient's notification
// could not be persisted. The action is retried; recipients already stored
// are skipped on the next attempt.
var ErrPartialDispatch = errors.New("notification dispatch incomplete")

// Worker runs the resolve, dispatch and log steps for queued actions.
type Worker struct {
	resolver   *Resolver
	dispatcher *Dispatcher
	audit      *AuditLogger
	logger     *slog.Logger
	metrics    *Metrics
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithWorkerMetrics(m *Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

func NewWorker(resolver *Resolver, dispatcher *Dispatcher, audit *AuditLogger, opts ...WorkerOption) *Worker {
	w := &Worker{
		resolver:   resolver,
		dispatcher: dispatcher,
		audit:      audit,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process handles one descriptor. The log entry is written after the
// recipient loop whatever the dispatch outcome; a failed log write or any
// failed notification makes the whole action fail so the queue redelivers.
func (w *Worker) Process(ctx context.Context, desc models.ActionDescriptor) error {
	start := time.Now()
	logger := w.logger.With(
		slog.String("action_id", desc.ID),
		slog.String("type", string(desc.Type)))

	recipients, err := w.resolver.Resolve(ctx, desc)
	if err != nil {
		w.metrics.observeAction("failed", time.Since(start))
		return fmt.Errorf("resolve recipients: %w", err)
	}

	report := w.dispatcher.Dispatch(ctx, desc, recipients)

	if _, err := w.audit.WriteLog(ctx, desc); err != nil {
		w.metrics.observeAction("failed", time.Since(start))
		return fmt.Errorf("write action log: %w", err)
	}

	if report.Failed > 0 {
		w.metrics.observeAction("partial", time.Since(start))
		return fmt.Errorf("%w: %d of %d recipients", ErrPartialDispatch, report.Failed, len(recipients))
	}

	w.metrics.observeAction("ok", time.Since(start))
	logger.Info("action processed",
		slog.Int("recipients", len(recipients)),
		slog.Int("delivered", report.Delivered),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Run consumes actions until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, consumer queue.Consumer) error {
	w.logger.Info("action worker started")
	err := consumer.Consume(ctx, w.Process)
	w.logger.Info("action worker stopped")
	return err
}
