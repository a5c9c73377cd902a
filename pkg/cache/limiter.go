package cache

import (
	"context"
	"sync"
	"time"
)

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NewLimiter returns a Redis-backed limiter when Redis is connected and an
// in-process one otherwise.
func NewLimiter(max int, window time.Duration) Limiter {
	if RDB != nil {
		return &redisLimiter{max: max, window: window}
	}
	return NewMemoryLimiter(max, window)
}

type redisLimiter struct {
	max    int
	window time.Duration
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if RDB == nil {
		return true, nil
	}
	k := "ratelimit:" + key

	pipe := RDB.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= int64(l.max), nil
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window limiter kept in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     max,
		window:  window,
		buckets: map[string]*bucket{},
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= l.max, nil
}

// Sweep drops buckets whose window has passed.
func (l *MemoryLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, k)
		}
	}
}

// Len returns the number of live buckets.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
