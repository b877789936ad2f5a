// Package throttle provides once-per-window gates keyed by string: resend
// cooldowns for verification mail and the sweeper's cross-process lease.
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// Limiter admits the first call per key within window.
type Limiter interface {
	// Allow reports whether key is free, claiming it for window if so.
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// RedisLimiter shares windows across processes through SET NX PX.
type RedisLimiter struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisLimiter dials addr. The connection is checked with PING.
func NewRedisLimiter(ctx context.Context, addr, password, keyPrefix string) (*RedisLimiter, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{addr},
		Password:     password,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisLimiterWithClient(client, keyPrefix), nil
}

// NewRedisLimiterWithClient wraps a pre-configured client. Tests pass a miniredis-backed one.
func NewRedisLimiterWithClient(client redis.UniversalClient, keyPrefix string) *RedisLimiter {
	return &RedisLimiter{client: client, keyPrefix: keyPrefix}
}

// Allow claims key for window using SetNX, so concurrent callers race on Redis.
func (l *RedisLimiter) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.keyPrefix+key, "1", window).Result()
}

// Ping reports whether Redis is reachable.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close releases the client.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// MemoryLimiter is a process-local Limiter used when Redis is not configured.
type MemoryLimiter struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewMemoryLimiter returns an empty limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{until: make(map[string]time.Time), now: time.Now}
}

// Allow claims key for window unless an earlier claim is still live.
func (l *MemoryLimiter) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if until, ok := l.until[key]; ok && now.Before(until) {
		return false, nil
	}
	l.until[key] = now.Add(window)
	for k, u := range l.until {
		if !now.Before(u) {
			delete(l.until, k)
		}
	}
	return true, nil
}
