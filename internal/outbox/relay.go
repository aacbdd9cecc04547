package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/anonto42/hrops/backend/internal/queue"
	"github.com/anonto42/hrops/backend/internal/repositories"
)

// Store is the outbox table as seen by the relay.
type Store interface {
	ProcessPending(ctx context.Context, limit int, publish repositories.PublishFunc) (int, error)
}

// Relay moves committed outbox rows onto the action queue.
type Relay struct {
	store    Store
	enqueuer queue.Enqueuer
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewRelay(store Store, enqueuer queue.Enqueuer, interval time.Duration, batch int, logger *slog.Logger) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{store: store, enqueuer: enqueuer, interval: interval, batch: batch, logger: logger}
}

// Flush publishes one batch and returns how many rows were published.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	return r.store.ProcessPending(ctx, r.batch, r.enqueuer.Enqueue)
}

// Run flushes on every tick until ctx is cancelled. A full batch is
// followed immediately by another flush.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.Flush(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Error("outbox flush failed", slog.Any("error", err))
				break
			}
			if n > 0 {
				r.logger.Debug("outbox published", slog.Int("count", n))
			}
			if n < r.batch {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
