package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/internal/queue"
)

type workerFixture struct {
	directory     *fakeDirectory
	notifications *fakeNotificationStore
	logs          *fakeLogStore
	emitter       *recordingEmitter
	pusher        *recordingPusher
	metrics       *Metrics
	worker        *Worker
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	f := &workerFixture{
		directory: newFakeDirectory().
			addUser(1, "U1", models.RoleEmployee, true, "tok-1").
			addUser(2, "U2", models.RoleEmployee, true, "tok-2").
			addUser(3, "U3", models.RoleEmployee, true, "").
			addUser(4, "U4", models.RoleAdmin, true, "tok-4"),
		notifications: newFakeNotificationStore(),
		logs:          &fakeLogStore{},
		emitter:       &recordingEmitter{},
		pusher:        &recordingPusher{failFor: map[string]bool{}},
		metrics:       NewMetrics(prometheus.NewRegistry()),
	}
	f.directory.teams[1] = []uint{2, 3}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher, err := NewDispatcher(f.directory, f.notifications, f.emitter, f.pusher,
		WithDispatcherLogger(logger), WithDispatcherMetrics(f.metrics))
	require.NoError(t, err)
	f.worker = NewWorker(NewResolver(f.directory), dispatcher, NewAuditLogger(f.logs),
		WithWorkerLogger(logger), WithWorkerMetrics(f.metrics))
	return f
}

func leaveAction() models.ActionDescriptor {
	return models.ActionDescriptor{
		ID:              "a1",
		ActorID:         1,
		TeamIDs:         []uint{1},
		NotifyAllAdmins: true,
		Type:            models.TypeLeaveRequest,
		Message:         "applied for leave",
	}
}

func TestProcessLeaveScenario(t *testing.T) {
	f := newWorkerFixture(t)
	f.pusher.failFor["tok-2"] = true

	err := f.worker.Process(context.Background(), leaveAction())
	require.NoError(t, err)

	rows := f.notifications.all()
	require.Len(t, rows, 3)
	recipients := []uint{}
	for _, n := range rows {
		recipients = append(recipients, n.RecipientID)
		assert.False(t, n.Read)
		assert.Equal(t, "applied for leave", n.Message)
	}
	assert.ElementsMatch(t, []uint{2, 3, 4}, recipients)

	logs := f.logs.all()
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].PrimaryRecipientID)
	require.NotNil(t, logs[0].ActorID)
	assert.Equal(t, uint(1), *logs[0].ActorID)

	// U3 has no token; U2's push fails and is swallowed.
	assert.Len(t, f.pusher.sent(), 2)
	assert.Equal(t, 3, f.emitter.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.pushFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.actionsProcessed.WithLabelValues("ok")))
}

func TestProcessHideFlagsAreIndependent(t *testing.T) {
	for _, hideLog := range []bool{false, true} {
		for _, hideNotification := range []bool{false, true} {
			t.Run(fmt.Sprintf("log=%t/notification=%t", hideLog, hideNotification), func(t *testing.T) {
				f := newWorkerFixture(t)
				desc := models.ActionDescriptor{
					ID:                 "hide",
					ActorID:            1,
					PrimaryRecipientID: models.UintPtr(2),
					Type:               models.TypeSuggestions,
					Message:            "posted a suggestion",
					HideInLog:          hideLog,
					HideInNotification: hideNotification,
				}

				require.NoError(t, f.worker.Process(context.Background(), desc))

				n, ok := f.notifications.forRecipient(2)
				require.True(t, ok)
				if hideNotification {
					assert.Nil(t, n.ActorID)
				} else {
					require.NotNil(t, n.ActorID)
					assert.Equal(t, uint(1), *n.ActorID)
				}

				logs := f.logs.all()
				require.Len(t, logs, 1)
				if hideLog {
					assert.Nil(t, logs[0].ActorID)
				} else {
					require.NotNil(t, logs[0].ActorID)
					assert.Equal(t, uint(1), *logs[0].ActorID)
				}
				require.NotNil(t, logs[0].PrimaryRecipientID)
				assert.Equal(t, uint(2), *logs[0].PrimaryRecipientID)
			})
		}
	}
}

func TestProcessWithoutCriteriaOnlyLogs(t *testing.T) {
	f := newWorkerFixture(t)

	err := f.worker.Process(context.Background(), models.ActionDescriptor{
		ID:      "profile",
		ActorID: 1,
		Type:    models.TypeAccount,
		Message: "updated own profile",
	})

	require.NoError(t, err)
	assert.Empty(t, f.notifications.all())
	assert.Len(t, f.logs.all(), 1)
	assert.Zero(t, f.emitter.count())
}

func TestProcessPartialFailureStillLogsAndRetries(t *testing.T) {
	f := newWorkerFixture(t)
	f.notifications.failOn[3] = errors.New("write timeout")

	err := f.worker.Process(context.Background(), leaveAction())

	require.ErrorIs(t, err, ErrPartialDispatch)
	assert.Len(t, f.notifications.all(), 2)
	assert.Len(t, f.logs.all(), 1)

	// The redelivery fills the gap without duplicating anything.
	delete(f.notifications.failOn, 3)
	require.NoError(t, f.worker.Process(context.Background(), leaveAction()))
	assert.Len(t, f.notifications.all(), 3)
	assert.Len(t, f.logs.all(), 1)
	assert.Equal(t, 3, f.emitter.count())
}

func TestProcessLogFailureIsFatal(t *testing.T) {
	f := newWorkerFixture(t)
	f.logs.err = errors.New("mongo down")

	err := f.worker.Process(context.Background(), leaveAction())

	require.Error(t, err)
	assert.ErrorIs(t, err, f.logs.err)
	assert.Len(t, f.notifications.all(), 3)
}

func TestProcessResolveFailureSkipsEverything(t *testing.T) {
	f := newWorkerFixture(t)
	f.directory.lookupErr = errors.New("postgres down")

	err := f.worker.Process(context.Background(), leaveAction())

	require.Error(t, err)
	assert.Empty(t, f.notifications.all())
	assert.Empty(t, f.logs.all())
}

func TestRunRetriesThroughQueue(t *testing.T) {
	f := newWorkerFixture(t)
	f.notifications.failOn[4] = errors.New("transient")

	q := queue.NewMemoryQueue(8, 1, queue.WithRetryPolicy(queue.RetryPolicy{
		MaxAttempts:     10,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
	}), queue.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx, q) }()

	desc := leaveAction()
	desc.ID = ""
	require.NoError(t, q.Enqueue(context.Background(), desc))

	require.Eventually(t, func() bool { return len(f.notifications.all()) == 2 }, time.Second, 5*time.Millisecond)
	f.notifications.mu.Lock()
	delete(f.notifications.failOn, 4)
	f.notifications.mu.Unlock()

	require.Eventually(t, func() bool { return len(f.notifications.all()) == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Len(t, f.logs.all(), 1)
	assert.Empty(t, q.Dead())
}
