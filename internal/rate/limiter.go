package rate

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Limiter is a fixed-window counter keyed by caller-chosen strings.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration)
}

type MemoryLimiter struct {
	mu    sync.Mutex
	store map[string]*bucket

	// Expired buckets are dropped at most once per sweepEvery.
	sweepEvery time.Duration
	lastSweep  time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
	window  time.Duration
}

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{
		store:      make(map[string]*bucket),
		sweepEvery: time.Minute,
		lastSweep:  time.Now(),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if now.Sub(m.lastSweep) >= m.sweepEvery {
		m.sweep(now)
	}

	b, ok := m.store[key]
	if !ok || now.After(b.resetAt) || b.window != window {
		b = &bucket{count: 0, resetAt: now.Add(window), window: window}
		m.store[key] = b
	}

	if b.count >= limit {
		return false, time.Until(b.resetAt)
	}

	b.count++
	return true, time.Until(b.resetAt)
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for key, b := range m.store {
		if now.After(b.resetAt) {
			delete(m.store, key)
		}
	}
	m.lastSweep = now
}

// windowScript increments the counter and starts the window on the first hit.
var windowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RedisLimiter shares windows across processes. Redis errors fail open.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
}

func NewRedis(client *redis.Client, log logrus.FieldLogger) *RedisLimiter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisLimiter{client: client, prefix: "instaclone:rl:", log: log}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration) {
	res, err := windowScript.Run(ctx, r.client, []string{r.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		r.log.WithError(err).WithField("key", key).Warn("rate limiter unavailable, allowing request")
		return true, window
	}

	remaining := time.Duration(res[1]) * time.Millisecond
	if remaining < 0 {
		remaining = window
	}
	return res[0] <= int64(limit), remaining
}
