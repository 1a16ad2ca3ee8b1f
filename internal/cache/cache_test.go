package cache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
)

func TestNewMemory(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	if c == nil {
		t.Fatal("NewMemory() returned nil")
	}
	if c.items == nil {
		t.Fatal("NewMemory() returned cache with nil items map")
	}
	if c.ttl != time.Minute {
		t.Errorf("NewMemory() ttl = %v, want %v", c.ttl, time.Minute)
	}
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()
	ctx := context.Background()

	if err := c.Set(ctx, "key1", 42, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Error("Get() returned false for existing key")
	}
	if got != 42 {
		t.Errorf("Get() = %v, want %v", got, 42)
	}
}

func TestMemoryCache_Get_NotFound(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	got, ok, err := c.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() should return false for non-existent key")
	}
	if got != 0 {
		t.Errorf("Get() should return 0 for non-existent key, got %v", got)
	}
}

func TestMemoryCache_Get_Expired(t *testing.T) {
	c := NewMemory(30 * time.Minute)
	defer c.Stop()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "key1", 7, 0)

	now = now.Add(29 * time.Minute)
	if _, ok, _ := c.Get(ctx, "key1"); !ok {
		t.Error("Get() should return true before the TTL elapses")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, "key1"); ok {
		t.Error("Get() should return false once the TTL elapsed")
	}
}

func TestMemoryCache_SetWithExplicitTTL(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "key1", 1, time.Hour)
	now = now.Add(50 * time.Minute)

	if _, ok, _ := c.Get(ctx, "key1"); !ok {
		t.Error("explicit TTL should override the default")
	}
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "short", 1, time.Second)
	_ = c.Set(ctx, "long", 2, time.Hour)

	now = now.Add(time.Minute)
	c.removeExpired()

	if c.Len() != 1 {
		t.Errorf("Len() = %d after cleanup, want 1", c.Len())
	}
}

func TestMemoryCache_CanceledContext(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := c.Get(ctx, "key1"); err != context.Canceled {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if err := c.Set(ctx, "key1", 1, 0); err != context.Canceled {
		t.Errorf("Set() error = %v, want context.Canceled", err)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", n%5)
			_ = c.Set(ctx, key, int64(n), 0)
			_, _, _ = c.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	if c.Len() != 5 {
		t.Errorf("Len() = %d, want 5", c.Len())
	}
}

func TestMemoryCache_ImplementsInterface(t *testing.T) {
	var _ Cache = (*MemoryCache)(nil)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping test: REDIS_ADDR not set")
	}

	c, err := NewRedis(RedisConfig{Addr: addr, Prefix: "channelfeed-test:"}, time.Minute)
	if err != nil {
		t.Skipf("Skipping test: redis unavailable: %v", err)
	}
	defer c.Close()
	ctx := context.Background()
	defer c.client.Del(ctx, c.key("median"))

	if _, ok, err := c.Get(ctx, "median"); err != nil || ok {
		t.Fatalf("Get() on empty cache = %v, %v", ok, err)
	}
	if err := c.Set(ctx, "median", 12, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := c.Get(ctx, "median")
	if err != nil || !ok || got != 12 {
		t.Errorf("Get() = %v, %v, %v; want 12, true, nil", got, ok, err)
	}
}

func TestRedisCache_KeyPrefix(t *testing.T) {
	c := newRedisWithClient(nil, "", time.Minute)
	if got := c.key("median"); got != "channelfeed:median" {
		t.Errorf("key() = %q", got)
	}
}
