package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/repositories"
)

// NotificationStore persists per-recipient notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
}

// DispatchReport counts recipients whose notification was persisted
// (Delivered) or could not be persisted (Failed). Push and real-time
// outcomes never move a recipient into Failed.
type DispatchReport struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Dispatcher fans one action out to its resolved recipients.
type Dispatcher struct {
	directory     Directory
	notifications NotificationStore
	emitter       Emitter
	pusher        Pusher
	logger        *slog.Logger
	metrics       *Metrics
	now           func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithDispatcherMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDispatcher(directory Directory, notifications NotificationStore, emitter Emitter, pusher Pusher, opts ...DispatcherOption) (*Dispatcher, error) {
	if directory == nil {
		return nil, errors.New("directory is required")
	}
	if notifications == nil {
		return nil, errors.New("notification store is required")
	}
	if emitter == nil {
		return nil, errors.New("emitter is required")
	}
	if pusher == nil {
		return nil, errors.New("pusher is required")
	}

	d := &Dispatcher{
		directory:     directory,
		notifications: notifications,
		emitter:       emitter,
		pusher:        pusher,
		logger:        slog.Default(),
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch handles every recipient independently. A recipient whose row
// already exists from an earlier delivery of the same action counts as
// delivered and gets no second emit or push.
func (d *Dispatcher) Dispatch(ctx context.Context, desc models.ActionDescriptor, recipients []uint) DispatchReport {
	var report DispatchReport
	if len(recipients) == 0 {
		return report
	}

	actor, actorName := d.lookupActor(ctx, desc)

	for _, recipientID := range recipients {
		if d.deliver(ctx, desc, recipientID, actor, actorName) {
			report.Delivered++
		} else {
			report.Failed++
		}
	}
	return report
}

// lookupActor returns the display data attached to realtime events and
// push bodies. Hidden or missing actors yield (nil, AnonymousActor).
func (d *Dispatcher) lookupActor(ctx context.Context, desc models.ActionDescriptor) (*models.UserCompact, string) {
	if desc.HideInNotification {
		return nil, AnonymousActor
	}
	user, err := d.directory.FindUser(ctx, desc.ActorID)
	if err != nil {
		d.logger.Warn("actor lookup failed",
			slog.String("action_id", desc.ID),
			slog.Uint64("actor_id", uint64(desc.ActorID)),
			slog.Any("error", err))
		return nil, AnonymousActor
	}
	compact := user.ToCompact()
	name := user.Name
	if name == "" {
		name = AnonymousActor
	}
	return &compact, name
}

func (d *Dispatcher) deliver(ctx context.Context, desc models.ActionDescriptor, recipientID uint, actor *models.UserCompact, actorName string) bool {
	logger := d.logger.With(
		slog.String("action_id", desc.ID),
		slog.Uint64("recipient_id", uint64(recipientID)))

	recipient, err := d.directory.FindUser(ctx, recipientID)
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		// Without a role the default message is used and push is skipped.
		logger.Warn("recipient not in directory")
		recipient = nil
	case err != nil:
		// The role decides the stored message, and a stored row is never
		// rewritten, so nothing is persisted until the lookup succeeds.
		logger.Error("recipient lookup failed", slog.Any("error", err))
		d.metrics.incNotification("failed")
		return false
	}

	var role models.Role
	if recipient != nil {
		role = recipient.Role
	}

	notification := &models.Notification{
		ActionID:    desc.ID,
		RecipientID: recipientID,
		Type:        desc.Type,
		Message:     SelectMessage(role, desc),
		RoleTag:     desc.RoleTag,
		CreatedAt:   d.now(),
	}
	if !desc.HideInNotification {
		actorID := desc.ActorID
		notification.ActorID = &actorID
	}

	err = d.notifications.CreateNotification(ctx, notification)
	if errors.Is(err, repositories.ErrDuplicate) {
		logger.Debug("notification already persisted")
		d.metrics.incNotification("duplicate")
		return true
	}
	if err != nil {
		logger.Error("persist notification failed", slog.Any("error", err))
		d.metrics.incNotification("failed")
		return false
	}
	d.metrics.incNotification("delivered")

	d.emit(ctx, logger, notification, actor)
	d.push(ctx, logger, desc, notification, recipient, actorName)
	return true
}

func (d *Dispatcher) emit(ctx context.Context, logger *slog.Logger, notification *models.Notification, actor *models.UserCompact) {
	event := models.RealtimeEvent{
		Event: models.EventNotification,
		Notification: models.EnrichedNotification{
			Notification: *notification,
			Actor:        actor,
		},
	}
	err := guard(func() error {
		return d.emitter.Emit(ctx, notification.RecipientID, event)
	})
	if err != nil {
		logger.Warn("realtime emit failed", slog.Any("error", err))
		d.metrics.incEmitFailure()
	}
}

func (d *Dispatcher) push(ctx context.Context, logger *slog.Logger, desc models.ActionDescriptor, notification *models.Notification, recipient *models.User, actorName string) {
	if recipient == nil || !recipient.IsActive || recipient.FCMToken == "" {
		return
	}

	msg := models.PushMessage{
		Token:          recipient.FCMToken,
		Title:          Title(desc.Type),
		Body:           PushBody(actorName, notification.Message),
		NotificationID: notification.ID.Hex(),
		Type:           desc.Type,
	}
	err := guard(func() error {
		return d.pusher.Push(ctx, msg)
	})
	if err != nil {
		logger.Warn("push notification failed", slog.Any("error", err))
		d.metrics.incPushFailure()
	}
}

// guard turns a panic in a best-effort channel into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
