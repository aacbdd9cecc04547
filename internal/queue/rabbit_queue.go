package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/validators"
	"github.com/go-playground/validator/v10"
	amqp "github.com/rabbitmq/amqp091-go"
)

const attemptHeader = "x-attempt"

// RabbitQueue is the durable driver. Failed deliveries are republished to
// a per-attempt retry queue whose TTL dead-letters them back onto the main
// queue. Exhausted and undecodable deliveries go to "<name>.dead".
type RabbitQueue struct {
	settings
	client      *RabbitmqClient
	name        string
	concurrency int
	validate    *validator.Validate
}

func NewRabbitQueue(client *RabbitmqClient, name string, concurrency int, opts ...Option) (*RabbitQueue, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	q := &RabbitQueue{
		settings:    s,
		client:      client,
		name:        name,
		concurrency: concurrency,
		validate:    validators.New(),
	}
	if err := q.declareTopology(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *RabbitQueue) deadQueue() string {
	return q.name + ".dead"
}

func (q *RabbitQueue) retryQueue(attempt int) string {
	return fmt.Sprintf("%s.retry.%d", q.name, attempt)
}

func (q *RabbitQueue) declareTopology() error {
	if err := q.client.CreateQueue(q.name, nil); err != nil {
		return fmt.Errorf("declare %s: %w", q.name, err)
	}
	if err := q.client.CreateQueue(q.deadQueue(), nil); err != nil {
		return fmt.Errorf("declare %s: %w", q.deadQueue(), err)
	}
	for i, delay := range q.policy.Delays() {
		name := q.retryQueue(i + 1)
		args := amqp.Table{
			"x-message-ttl":             delay.Milliseconds(),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": q.name,
		}
		if err := q.client.CreateQueue(name, args); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}
	}
	return nil
}

// Enqueue returns once the broker has confirmed the message.
func (q *RabbitQueue) Enqueue(ctx context.Context, desc models.ActionDescriptor) error {
	if err := prepare(q.validate, &desc); err != nil {
		q.metrics.incEnqueued("invalid")
		return err
	}
	body, err := json.Marshal(desc)
	if err != nil {
		q.metrics.incEnqueued("invalid")
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if err := q.client.Publish(ctx, q.name, body, amqp.Table{attemptHeader: int32(1)}); err != nil {
		q.metrics.incEnqueued("unavailable")
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	q.metrics.incEnqueued("ok")
	return nil
}

// Consume blocks until ctx is cancelled or the client is closed. When the
// broker connection drops, the consumer waits for the client to reconnect
// and starts again; unacknowledged deliveries are redelivered by the
// broker. A delivery already handed to handler runs to completion.
func (q *RabbitQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		deliveries, reconnected, err := q.client.Consume(q.name, q.concurrency)
		if err != nil {
			q.logger.Warn("start consumer failed, waiting for reconnect", slog.Any("error", err))
		} else {
			q.drain(ctx, deliveries, handler)
		}

		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-q.client.Closed():
			return fmt.Errorf("%w: %v", ErrQueueUnavailable, errClientClosed)
		case <-reconnected:
			q.logger.Info("resuming consumer after reconnect", slog.String("queue", q.name))
		}
	}
}

// drain runs the handler pool until ctx is cancelled or the broker closes
// the delivery channel.
func (q *RabbitQueue) drain(ctx context.Context, deliveries <-chan amqp.Delivery, handler Handler) {
	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					q.handle(context.WithoutCancel(ctx), d, handler)
				}
			}
		}()
	}
	wg.Wait()
}

func (q *RabbitQueue) handle(ctx context.Context, d amqp.Delivery, handler Handler) {
	attempt := attemptOf(d.Headers)

	var desc models.ActionDescriptor
	if err := decode(q.validate, d.Body, &desc); err != nil {
		q.logger.Error("undecodable action message", slog.Any("error", err))
		q.settle(ctx, d, q.deadQueue(), d.Body, deadHeaders(attempt, err), "poison")
		return
	}

	logger := q.logger.With(slog.String("action_id", desc.ID), slog.Int("attempt", attempt))

	err := handler(ctx, desc)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			logger.Warn("ack failed", slog.Any("error", ackErr))
		}
		return
	}

	if _, retry := q.policy.Next(attempt); retry {
		logger.Warn("action failed, scheduling retry", slog.Any("error", err))
		q.settle(ctx, d, q.retryQueue(attempt), d.Body, amqp.Table{attemptHeader: int32(attempt + 1)}, "")
		return
	}

	logger.Error("action failed, moving to dead queue", slog.Any("error", err))
	q.settle(ctx, d, q.deadQueue(), d.Body, deadHeaders(attempt, err), "max_attempts")
}

// settle republishes the body to target and acks the original. If the
// republish fails the original is requeued instead, so nothing is lost.
func (q *RabbitQueue) settle(ctx context.Context, d amqp.Delivery, target string, body []byte, headers amqp.Table, deadReason string) {
	if err := q.client.Publish(ctx, target, body, headers); err != nil {
		q.logger.Error("republish failed, requeueing", slog.String("target", target), slog.Any("error", err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			q.logger.Warn("nack failed", slog.Any("error", nackErr))
		}
		return
	}
	if deadReason != "" {
		q.metrics.incDeadLettered(deadReason)
	} else {
		q.metrics.incRetried()
	}
	if err := d.Ack(false); err != nil {
		q.logger.Warn("ack failed", slog.Any("error", err))
	}
}

func (q *RabbitQueue) Close() error {
	return q.client.Close()
}

func decode(v *validator.Validate, body []byte, desc *models.ActionDescriptor) error {
	if err := json.Unmarshal(body, desc); err != nil {
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	if err := v.Struct(desc); err != nil {
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	return nil
}

func deadHeaders(attempt int, cause error) amqp.Table {
	return amqp.Table{
		attemptHeader: int32(attempt),
		"x-error":     cause.Error(),
	}
}

// attemptOf reads the attempt header. Messages without one are on their
// first attempt.
func attemptOf(headers amqp.Table) int {
	switch v := headers[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 1
}

var _ Queue = (*RabbitQueue)(nil)
var _ Queue = (*MemoryQueue)(nil)

// IsUnavailable reports whether err came from an unreachable queue.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrQueueUnavailable)
}
