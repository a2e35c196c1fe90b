package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryQueueDrainsOnStop(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	handler := func(_ context.Context, job Job) {
		mu.Lock()
		seen = append(seen, job.ReservationID)
		mu.Unlock()
	}

	q := NewMemoryQueue(10, 3, handler, zap.NewNop())
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Publish(context.Background(), Job{ReservationID: fmt.Sprint(i)}))
	}

	require.NoError(t, q.Start(context.Background()))
	require.NoError(t, q.Stop())

	assert.ElementsMatch(t, []string{"0", "1", "2", "3", "4"}, seen)
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(1, 1, func(context.Context, Job) {}, zap.NewNop())

	require.NoError(t, q.Publish(context.Background(), Job{ReservationID: "a"}))
	assert.ErrorIs(t, q.Publish(context.Background(), Job{ReservationID: "b"}), ErrQueueFull)
}

func TestMemoryQueuePublishAfterStop(t *testing.T) {
	q := NewMemoryQueue(1, 1, func(context.Context, Job) {}, zap.NewNop())
	require.NoError(t, q.Start(context.Background()))
	require.NoError(t, q.Stop())
	require.NoError(t, q.Stop())

	assert.ErrorIs(t, q.Publish(context.Background(), Job{}), ErrQueueStopped)
}
