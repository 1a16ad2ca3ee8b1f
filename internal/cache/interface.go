package cache

import (
	"context"
	"time"
)

// Cache stores integer thresholds with an expiry. A miss is reported by
// ok == false; err is reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (value int64, ok bool, err error)
	Set(ctx context.Context, key string, value int64, ttl time.Duration) error
}
