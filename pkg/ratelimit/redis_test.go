package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisLimiter(t *testing.T, policy Policy) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l, err := NewRedisLimiter(client, policy, "test")
	require.NoError(t, err)
	return l, mr
}

func TestRedisLimiter_Allow(t *testing.T) {
	l, mr := setupRedisLimiter(t, Policy{Limit: 5, Window: 10 * time.Minute})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := l.Allow(ctx, "phone:+919876543210")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 5-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "phone:+919876543210")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	assert.True(t, mr.Exists("test:phone:+919876543210"))
	assert.Equal(t, 10*time.Minute, mr.TTL("test:phone:+919876543210"))

	d, err = l.Allow(ctx, "phone:+919876543211")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_WindowExpires(t *testing.T) {
	l, mr := setupRedisLimiter(t, Policy{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, _ = l.Allow(ctx, "k")
	assert.False(t, d.Allowed)
	// rejections do not extend the window
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	mr.FastForward(time.Minute)
	d, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	l, mr := setupRedisLimiter(t, Policy{Limit: 1, Window: time.Minute})
	mr.Close()

	d, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Limit)
}

func TestRedisLimiter_KeyPrefixAndTTL(t *testing.T) {
	l, mr := setupRedisLimiter(t, Policy{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	_, err := l.Allow(ctx, "phone:+919876543210")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:phone:+919876543210"))
	assert.Equal(t, time.Minute, mr.TTL("test:phone:+919876543210"))
}
