package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
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

func newTestLimiter(t *testing.T, limit int, window time.Duration, capacity int) (*MemoryLimiter, *fakeClock) {
	t.Helper()
	l, err := NewMemoryLimiter(Policy{Limit: limit, Window: window}, capacity)
	require.NoError(t, err)
	clock := newFakeClock()
	l.now = clock.Now
	return l, clock
}

func TestNewMemoryLimiter_InvalidPolicy(t *testing.T) {
	_, err := NewMemoryLimiter(Policy{Limit: 0, Window: time.Minute}, 10)
	assert.Error(t, err)
	_, err = NewMemoryLimiter(Policy{Limit: 1, Window: 0}, 10)
	assert.Error(t, err)
}

func TestMemoryLimiter_SixthRequestRejected(t *testing.T) {
	l, _ := newTestLimiter(t, 5, 10*time.Minute, 0)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := l.Allow(ctx, "phone:+919876543210")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 5-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "phone:+919876543210")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	// a different key has its own window
	d, err = l.Allow(ctx, "phone:+919876543211")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_WindowBoundary(t *testing.T) {
	l, clock := newTestLimiter(t, 2, time.Minute, 0)
	ctx := context.Background()
	start := clock.Now()

	d, _ := l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	assert.Equal(t, start.Add(time.Minute), d.ResetAt)

	clock.Advance(30 * time.Second)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed)

	// last instant inside the window
	clock.Advance(30*time.Second - time.Nanosecond)
	d, _ = l.Allow(ctx, "k")
	assert.False(t, d.Allowed)
	assert.Equal(t, start.Add(time.Minute), d.ResetAt, "rejections do not extend the window")

	// exactly start+window opens a new window
	clock.Advance(time.Nanosecond)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
}

func TestMemoryLimiter_RejectedRequestsStillCount(t *testing.T) {
	l, clock := newTestLimiter(t, 1, time.Minute, 0)
	ctx := context.Background()

	d, _ := l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	for i := 0; i < 3; i++ {
		clock.Advance(10 * time.Second)
		d, _ = l.Allow(ctx, "k")
		assert.False(t, d.Allowed)
	}
	clock.Advance(30 * time.Second)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_ConcurrentSameKey(t *testing.T) {
	l, _ := newTestLimiter(t, 50, time.Minute, 0)
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := l.Allow(ctx, "shared")
			if d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(50), allowed.Load())
}

func TestMemoryLimiter_CapacityEvictsLRU(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute, 2)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a")
	_, _ = l.Allow(ctx, "b")
	_, _ = l.Allow(ctx, "c") // evicts a
	assert.Equal(t, 2, l.Len())

	d, _ := l.Allow(ctx, "a")
	assert.True(t, d.Allowed, "evicted key starts over")
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	l, clock := newTestLimiter(t, 5, time.Minute, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = l.Allow(ctx, fmt.Sprintf("old-%d", i))
	}
	clock.Advance(45 * time.Second)
	_, _ = l.Allow(ctx, "fresh")
	clock.Advance(15 * time.Second)

	assert.Equal(t, 3, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestDecision_RetryAfter(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 90*time.Second, Decision{ResetAt: now.Add(90 * time.Second)}.RetryAfter(now))
	assert.Equal(t, time.Second, Decision{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}
