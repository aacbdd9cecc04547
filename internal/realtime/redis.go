package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/anonto42/hrops/backend/internal/models"
)

// DefaultChannel carries realtime events from workers to API processes.
const DefaultChannel = "hrops:realtime"

type envelope struct {
	UserID uint                 `json:"user_id"`
	Event  models.RealtimeEvent `json:"event"`
}

// RedisEmitter publishes events so that whichever API process holds the
// user's socket can deliver them.
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

func NewRedisEmitter(client *redis.Client, channel string) *RedisEmitter {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisEmitter{client: client, channel: channel}
}

func (e *RedisEmitter) Emit(ctx context.Context, userID uint, event models.RealtimeEvent) error {
	payload, err := json.Marshal(envelope{UserID: userID, Event: event})
	if err != nil {
		return fmt.Errorf("marshal realtime envelope: %w", err)
	}
	return e.client.Publish(ctx, e.channel, payload).Err()
}

type localEmitter interface {
	Emit(ctx context.Context, userID uint, event models.RealtimeEvent) error
}

// Relay subscribes to the channel and hands events to the local hub.
type Relay struct {
	client  *redis.Client
	channel string
	target  localEmitter
	logger  *slog.Logger
}

func NewRelay(client *redis.Client, channel string, target localEmitter, logger *slog.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{client: client, channel: channel, target: target, logger: logger}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("realtime relay subscribed", slog.String("channel", r.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("bad realtime envelope", slog.Any("error", err))
				continue
			}
			if err := r.target.Emit(ctx, env.UserID, env.Event); err != nil {
				r.logger.Warn("relay emit failed", slog.Any("error", err))
			}
		}
	}
}

// Discard drops every event. Workers without Redis use it; clients catch
// up through the notification list instead.
type Discard struct{}

func (Discard) Emit(context.Context, uint, models.RealtimeEvent) error { return nil }
