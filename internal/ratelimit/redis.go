package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares the per-key interval across server instances
type RedisLimiter struct {
	client      redis.UniversalClient
	prefix      string
	minInterval time.Duration
	timeout     time.Duration
}

// NewRedis creates a limiter storing one expiring marker per key
func NewRedis(client redis.UniversalClient, prefix string, minInterval time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		prefix:      prefix,
		minInterval: minInterval,
		timeout:     time.Second,
	}
}

// Allow sets the key's marker when absent. A Redis failure lets the
// request through.
func (l *RedisLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	ok, err := l.client.SetNX(ctx, l.prefix+key, 1, l.minInterval).Result()
	if err != nil {
		return true
	}
	return ok
}

var _ RateLimiter = (*RedisLimiter)(nil)
