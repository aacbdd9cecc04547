package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

const maxReconnectInterval = 30 * time.Second

var errClientClosed = errors.New("rabbitmq client closed")

type declaredQueue struct {
	name string
	args amqp.Table
}

// RabbitmqClient owns one connection with a confirm-mode channel for
// publishing and a separate channel for consuming. When the connection or
// either channel closes underneath it, the client redials with exponential
// backoff and declares every known queue again.
type RabbitmqClient struct {
	url    string
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	conn     *amqp.Connection
	pubChn   *amqp.Channel
	consChn  *amqp.Channel
	next     chan struct{}
	declared []declaredQueue
}

// ClientOption configures a RabbitmqClient.
type ClientOption func(*RabbitmqClient)

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(r *RabbitmqClient) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewClient dials once and fails fast; reconnecting only starts after the
// first connection was established.
func NewClient(url string, opts ...ClientOption) (*RabbitmqClient, error) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &RabbitmqClient{
		url:    url,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
		next:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.connect(); err != nil {
		cancel()
		return nil, err
	}
	return r, nil
}

func (r *RabbitmqClient) connect() error {
	if r.ctx.Err() != nil {
		return backoff.Permanent(errClientClosed)
	}

	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	pubChn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open publish channel: %w", err)
	}
	if err := pubChn.Confirm(false); err != nil {
		conn.Close()
		return fmt.Errorf("enable publisher confirms: %w", err)
	}

	consChn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open consume channel: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx.Err() != nil {
		conn.Close()
		return backoff.Permanent(errClientClosed)
	}
	for _, q := range r.declared {
		if err := declare(pubChn, q.name, q.args); err != nil {
			conn.Close()
			return fmt.Errorf("declare %s: %w", q.name, err)
		}
	}

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	pubClosed := pubChn.NotifyClose(make(chan *amqp.Error, 1))
	consClosed := consChn.NotifyClose(make(chan *amqp.Error, 1))

	r.conn, r.pubChn, r.consChn = conn, pubChn, consChn
	close(r.next)
	r.next = make(chan struct{})

	go r.watch(conn, connClosed, pubClosed, consClosed)
	return nil
}

// watch waits for the current connection or one of its channels to close
// and then reconnects. A closed channel on a live connection is not
// reusable, so the whole connection is replaced.
func (r *RabbitmqClient) watch(conn *amqp.Connection, closed ...<-chan *amqp.Error) {
	var reason *amqp.Error
	select {
	case <-r.ctx.Done():
		return
	case reason = <-closed[0]:
	case reason = <-closed[1]:
	case reason = <-closed[2]:
	}
	if r.ctx.Err() != nil {
		return
	}
	_ = conn.Close()
	r.logger.Warn("rabbitmq connection lost, reconnecting", slog.Any("reason", reason))
	r.reconnect()
}

func (r *RabbitmqClient) reconnect() {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = maxReconnectInterval
	b.MaxElapsedTime = 0

	err := backoff.RetryNotify(r.connect, backoff.WithContext(b, r.ctx), func(err error, wait time.Duration) {
		r.logger.Warn("rabbitmq reconnect failed", slog.Any("error", err), slog.Duration("retry_in", wait))
	})
	if err != nil {
		return
	}
	r.logger.Info("rabbitmq connection restored")
}

// Closed is closed once Close has been called.
func (r *RabbitmqClient) Closed() <-chan struct{} {
	return r.ctx.Done()
}

func (r *RabbitmqClient) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	if err := r.consChn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	if err := r.pubChn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	if err := r.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CreateQueue declares a durable queue with optional arguments. The queue
// is declared again after every reconnect.
func (r *RabbitmqClient) CreateQueue(queueName string, args amqp.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := declare(r.pubChn, queueName, args); err != nil {
		return err
	}
	r.declared = append(r.declared, declaredQueue{name: queueName, args: args})
	return nil
}

func declare(ch *amqp.Channel, queueName string, args amqp.Table) error {
	_, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		args,
	)
	return err
}

func (r *RabbitmqClient) publishChannel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pubChn
}

// Publish sends a persistent message to queueName and waits for the broker
// to confirm it. While the connection is down it fails straight away.
func (r *RabbitmqClient) Publish(ctx context.Context, queueName string, body []byte, headers amqp.Table) error {
	confirm, err := r.publishChannel().PublishWithDeferredConfirmWithContext(
		ctx,
		"",        // default exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return err
	}
	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("broker rejected message for %s", queueName)
	}
	return nil
}

// Consume starts a manual-ack consumer. prefetch bounds the unacknowledged
// deliveries the broker hands out. The returned reconnected channel closes
// once the connection the consumer was started on has been replaced; it is
// valid even when err is not nil.
func (r *RabbitmqClient) Consume(queueName string, prefetch int) (deliveries <-chan amqp.Delivery, reconnected <-chan struct{}, err error) {
	r.mu.RLock()
	consChn, next := r.consChn, r.next
	r.mu.RUnlock()

	if err := consChn.Qos(prefetch, 0, false); err != nil {
		return nil, next, fmt.Errorf("set prefetch: %w", err)
	}
	deliveries, err = consChn.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	return deliveries, next, err
}
