// Package ratelimit spaces out requests sharing a key, such as one client
// address hitting the feed endpoints.
package ratelimit

import (
	"sync"
	"time"
)

// RateLimiter reports whether a request for key may proceed now
type RateLimiter interface {
	Allow(key string) bool
}

// Limiter enforces a minimum interval between requests per key in memory
type Limiter struct {
	mu          sync.Mutex
	keys        map[string]time.Time
	minInterval time.Duration
	lastSweep   time.Time
}

// New creates a limiter allowing one request per key every minInterval
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		keys:        make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow records the request and returns true when the key's last accepted
// request is at least minInterval old. Rejected requests leave the
// timestamp untouched.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweep(now)
	if last, ok := l.keys[key]; ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.keys[key] = now
	return true
}

// sweep drops keys whose last request is older than minInterval, at most
// once per interval. Callers hold mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.minInterval {
		return
	}
	l.lastSweep = now
	for key, last := range l.keys {
		if now.Sub(last) >= l.minInterval {
			delete(l.keys, key)
		}
	}
}

// Wait blocks until a request for key is allowed
func (l *Limiter) Wait(key string) {
	for {
		l.mu.Lock()
		now := time.Now()
		last, ok := l.keys[key]
		if !ok || now.Sub(last) >= l.minInterval {
			l.keys[key] = now
			l.mu.Unlock()
			return
		}
		wait := l.minInterval - now.Sub(last)
		l.mu.Unlock()
		time.Sleep(wait)
	}
}

// Reset forgets the last request for key
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}

// ResetAll forgets every key
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = make(map[string]time.Time)
}

var _ RateLimiter = (*Limiter)(nil)
