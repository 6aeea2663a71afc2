package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(cfg Config) (*RateLimitService, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)}
	service := NewRateLimitService(cfg, zap.NewNop())
	service.now = clock.Now
	return service, clock
}

func TestRateLimitService_CheckLimit(t *testing.T) {
	t.Run("burst then deny", func(t *testing.T) {
		service, _ := newTestService(Config{RequestsPerSecond: 1, Burst: 3})

		for i := 0; i < 3; i++ {
			assert.True(t, service.CheckLimit("10.0.0.1").Allowed, "request %d", i)
		}

		result := service.CheckLimit("10.0.0.1")
		assert.False(t, result.Allowed)
		assert.Equal(t, 3, result.Limit)
		assert.InDelta(t, time.Second.Seconds(), result.RetryAfter.Seconds(), 0.01)
	})

	t.Run("refills over time", func(t *testing.T) {
		service, clock := newTestService(Config{RequestsPerSecond: 2, Burst: 1})

		assert.True(t, service.CheckLimit("a").Allowed)
		assert.False(t, service.CheckLimit("a").Allowed)

		clock.Advance(500 * time.Millisecond)
		assert.True(t, service.CheckLimit("a").Allowed)
	})

	t.Run("denied requests do not consume tokens", func(t *testing.T) {
		service, clock := newTestService(Config{RequestsPerSecond: 1, Burst: 1})

		assert.True(t, service.CheckLimit("a").Allowed)
		for i := 0; i < 5; i++ {
			assert.False(t, service.CheckLimit("a").Allowed)
		}

		clock.Advance(time.Second)
		assert.True(t, service.CheckLimit("a").Allowed)
	})

	t.Run("clients are independent", func(t *testing.T) {
		service, _ := newTestService(Config{RequestsPerSecond: 1, Burst: 1})

		assert.True(t, service.CheckLimit("a").Allowed)
		assert.False(t, service.CheckLimit("a").Allowed)
		assert.True(t, service.CheckLimit("b").Allowed)
	})

	t.Run("zero rate disables limiting", func(t *testing.T) {
		service, _ := newTestService(Config{})

		for i := 0; i < 100; i++ {
			assert.True(t, service.CheckLimit("a").Allowed)
		}
	})
}

func TestRateLimitService_Sweep(t *testing.T) {
	service, clock := newTestService(Config{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})

	service.CheckLimit("old")
	clock.Advance(45 * time.Second)
	service.CheckLimit("recent")
	assert.Equal(t, 2, service.Clients())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, service.Sweep())
	assert.Equal(t, 1, service.Clients())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, service.Sweep())
	assert.Equal(t, 0, service.Clients())
}

func TestRateLimitService_Concurrent(t *testing.T) {
	service, _ := newTestService(Config{RequestsPerSecond: 0.001, Burst: 10})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if service.CheckLimit("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
}
