package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/validators"
	"github.com/go-playground/validator/v10"
)

type memoryDelivery struct {
	desc    models.ActionDescriptor
	attempt int
}

// MemoryQueue is an in-process driver for local runs and tests. It keeps
// the retry and dead letter behaviour of the broker driver but loses
// everything on restart.
type MemoryQueue struct {
	settings
	validate    *validator.Validate
	deliveries  chan memoryDelivery
	concurrency int

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	dead   []models.ActionDescriptor
}

func NewMemoryQueue(capacity, concurrency int, opts ...Option) *MemoryQueue {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if capacity < 1 {
		capacity = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &MemoryQueue{
		settings:    s,
		validate:    validators.New(),
		deliveries:  make(chan memoryDelivery, capacity),
		concurrency: concurrency,
		done:        make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, desc models.ActionDescriptor) error {
	if err := prepare(q.validate, &desc); err != nil {
		q.metrics.incEnqueued("invalid")
		return err
	}
	if q.isClosed() {
		q.metrics.incEnqueued("unavailable")
		return ErrQueueUnavailable
	}

	select {
	case q.deliveries <- memoryDelivery{desc: desc, attempt: 1}:
		q.metrics.incEnqueued("ok")
		return nil
	case <-q.done:
		q.metrics.incEnqueued("unavailable")
		return ErrQueueUnavailable
	case <-ctx.Done():
		q.metrics.incEnqueued("unavailable")
		return errors.Join(ErrQueueUnavailable, ctx.Err())
	}
}

// Consume runs handler on up to concurrency deliveries at a time until ctx
// is cancelled or the queue is closed. In-flight deliveries finish first.
func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.done:
					return
				case d := <-q.deliveries:
					q.handle(context.WithoutCancel(ctx), d, handler)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func (q *MemoryQueue) handle(ctx context.Context, d memoryDelivery, handler Handler) {
	err := handler(ctx, d.desc)
	if err == nil {
		return
	}

	logger := q.logger.With(
		slog.String("action_id", d.desc.ID),
		slog.Int("attempt", d.attempt),
		slog.Any("error", err))

	delay, retry := q.policy.Next(d.attempt)
	if !retry {
		logger.Error("action moved to dead queue")
		q.metrics.incDeadLettered("max_attempts")
		q.mu.Lock()
		q.dead = append(q.dead, d.desc)
		q.mu.Unlock()
		return
	}

	logger.Warn("action scheduled for retry", slog.Duration("delay", delay))
	q.metrics.incRetried()
	next := memoryDelivery{desc: d.desc, attempt: d.attempt + 1}
	time.AfterFunc(delay, func() {
		select {
		case q.deliveries <- next:
		case <-q.done:
		}
	})
}

// Dead returns the descriptors that exhausted their attempts.
func (q *MemoryQueue) Dead() []models.ActionDescriptor {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.ActionDescriptor, len(q.dead))
	copy(out, q.dead)
	return out
}

// Len is the number of deliveries waiting to be consumed.
func (q *MemoryQueue) Len() int {
	return len(q.deliveries)
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}

func (q *MemoryQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
