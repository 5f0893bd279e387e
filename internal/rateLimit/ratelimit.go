package rateLimit

import (
	"context"
	"sync"
	"time"

	redisadapter "github.com/robertarktes/studio-bookings/internal/adapters/redis"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

// Counter increments a fixed-window counter and returns the new value.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type RateLimiter struct {
	counter Counter
	logger  observability.Logger
}

func NewRateLimiter(redis *redisadapter.Cache, logger observability.Logger) *RateLimiter {
	return NewWithCounter(redisCounter{cache: redis}, logger)
}

func NewWithCounter(counter Counter, logger observability.Logger) *RateLimiter {
	return &RateLimiter{counter: counter, logger: logger}
}

// Allow reports whether key is still within rate for the current window.
// Counter failures let the request through.
func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	n, err := rl.counter.Incr(ctx, "rl:"+key, period)
	if err != nil {
		rl.logger.WithError(err).WithField("key", key).Warn("rate limit counter unavailable")
		return true
	}
	return n <= int64(rate)
}

type redisCounter struct {
	cache *redisadapter.Cache
}

func (c redisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.cache.Client().Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// MemoryCounter is an in-process Counter for single-instance runs and tests.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
}

type window struct {
	count   int64
	expires time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: map[string]window{}, now: time.Now}
}

func (m *MemoryCounter) Incr(_ context.Context, key string, period time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	w := m.windows[key]
	if now.After(w.expires) {
		w = window{expires: now.Add(period)}
	}
	w.count++
	m.windows[key] = w
	return w.count, nil
}
