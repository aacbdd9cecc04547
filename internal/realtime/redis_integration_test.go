//go:build integration

package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/hrops/backend/internal/models"
	"github.com/anonto42/hrops/backend/pkg/testutil/containers"
)

type captureEmitter struct {
	mu     sync.Mutex
	userID uint
	events []models.RealtimeEvent
}

func (c *captureEmitter) Emit(_ context.Context, userID uint, ev models.RealtimeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.events = append(c.events, ev)
	return nil
}

func (c *captureEmitter) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestRedisEmitterReachesRelay(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	target := &captureEmitter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := NewRelay(rc.Client, "test:realtime", target, nil)
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	emitter := NewRedisEmitter(rc.Client, "test:realtime")
	// Publishing before the subscription is active is lost, so retry.
	require.Eventually(t, func() bool {
		_ = emitter.Emit(ctx, 5, event(5, "liked your suggestion"))
		return target.len() > 0
	}, 5*time.Second, 50*time.Millisecond)

	target.mu.Lock()
	assert.Equal(t, uint(5), target.userID)
	assert.Equal(t, "liked your suggestion", target.events[0].Notification.Message)
	target.mu.Unlock()

	cancel()
	require.NoError(t, <-done)
}
