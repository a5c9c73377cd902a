package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teastall/teastall/pkg/workerpool"
)

func TestPoolSubmitAndExecute(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Shutdown()

	const n = 100
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		require.NoError(t, pool.SubmitWait(context.Background(), func() {
			defer wg.Done()
			count.Add(1)
		}))
	}

	wg.Wait()
	assert.Equal(t, int64(n), count.Load())
}

func TestPoolErrPoolFull(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.SubmitWait(context.Background(), func() {
		close(started)
		<-blocker
	}))
	<-started

	// Queue holds two tasks for a single worker.
	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))
	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolFull)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.SubmitWait(ctx, func() {}), context.DeadlineExceeded)

	close(blocker)
}

func TestPoolErrPoolClosed(t *testing.T) {
	pool := workerpool.New(2)
	pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolClosed)
	assert.ErrorIs(t, pool.SubmitWait(context.Background(), func() {}), workerpool.ErrPoolClosed)
}

func TestPoolSurvivesPanic(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	require.NoError(t, pool.SubmitWait(context.Background(), func() { panic("boom") }))

	ran := make(chan struct{})
	require.NoError(t, pool.SubmitWait(context.Background(), func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestRunCollectsResults(t *testing.T) {
	var a, b, c int
	err := workerpool.Run(context.Background(), 2,
		func(context.Context) error { a = 1; return nil },
		func(context.Context) error { b = 2; return nil },
		func(context.Context) error { c = 3; return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, []int{a, b, c})
}

func TestRunReturnsFirstErrorAndCancels(t *testing.T) {
	boom := errors.New("count failed")
	var cancelled atomic.Bool

	err := workerpool.Run(context.Background(), 2,
		func(context.Context) error { return boom },
		func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				cancelled.Store(true)
			case <-time.After(2 * time.Second):
			}
			return nil
		},
	)
	assert.ErrorIs(t, err, boom)
	assert.True(t, cancelled.Load())
}

func TestRunTurnsPanicIntoError(t *testing.T) {
	err := workerpool.Run(context.Background(), 1, func(context.Context) error { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}
