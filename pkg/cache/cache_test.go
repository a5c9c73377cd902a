package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheIsANoop(t *testing.T) {
	Use(nil)
	ctx := context.Background()

	assert.False(t, Enabled())
	assert.NoError(t, Set(ctx, "k", 1, time.Minute))
	var out int
	assert.False(t, Get(ctx, "k", &out))
	assert.NoError(t, Forget(ctx, "k"))
}

func TestRememberCallsThroughWhenDisabled(t *testing.T) {
	Use(nil)
	calls := 0
	fn := func() (int, error) { calls++; return 42, nil }

	v, err := Remember(context.Background(), "answer", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, _ = Remember(context.Background(), "answer", time.Minute, fn)
	assert.Equal(t, 2, calls)
}

func TestRememberPropagatesError(t *testing.T) {
	Use(nil)
	boom := errors.New("boom")
	_, err := Remember(context.Background(), "x", time.Minute, func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "hit %d", i)
	}

	ok, _ := l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are independent")

	now = now.Add(2 * time.Minute)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "window resets")
}

func TestMemoryLimiterSweep(t *testing.T) {
	l := NewMemoryLimiter(1, time.Second)
	now := time.Now()
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a")
	_, _ = l.Allow(context.Background(), "b")
	assert.Equal(t, 2, l.Len())

	now = now.Add(5 * time.Second)
	l.Sweep()
	assert.Equal(t, 0, l.Len())
}

func TestNewLimiterFallsBackToMemory(t *testing.T) {
	Use(nil)
	_, ok := NewLimiter(10, time.Minute).(*MemoryLimiter)
	assert.True(t, ok)
}
