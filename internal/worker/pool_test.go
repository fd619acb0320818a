package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start(context.Background())

	var done int32
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
			atomic.AddInt32(&done, 1)
			return nil
		}))
	}
	pool.Stop()

	assert.Equal(t, int32(20), atomic.LoadInt32(&done))
}

func TestWorkerPoolSubmitHonoursContext(t *testing.T) {
	pool := NewWorkerPool(1)
	// Not started: the buffer fills and Submit must give up with ctx.
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(context.Context) error { return nil }))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Submit(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerPoolRejectsAfterStop(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()

	err := pool.Submit(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolStopped)
}
