package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// fixedWindowScript increments the counter and starts the window expiry on
// the first hit. Returns {count, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter is a fixed-window limiter shared across instances via Redis
type RedisLimiter struct {
	client *redis.Client
	policy Policy
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter. Keys are stored as
// "<prefix>:<key>".
func NewRedisLimiter(client *redis.Client, policy Policy, prefix string) (*RedisLimiter, error) {
	if policy.Limit <= 0 || policy.Window <= 0 {
		return nil, fmt.Errorf("invalid rate limit policy: %d per %v", policy.Limit, policy.Window)
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{
		client: client,
		policy: policy,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Policy implements Limiter
func (l *RedisLimiter) Policy() Policy {
	return l.policy
}

// Allow implements Limiter. On Redis errors the returned decision allows
// the request.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	now := l.now()

	res, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.policy.Window.Milliseconds()).Result()
	if err != nil {
		return l.failOpen(now), fmt.Errorf("redis error: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return l.failOpen(now), fmt.Errorf("unexpected script result: %v", res)
	}
	count, _ := vals[0].(int64)
	ttl, _ := vals[1].(int64)

	return Decision{
		Allowed:   count <= int64(l.policy.Limit),
		Limit:     l.policy.Limit,
		Remaining: remaining(l.policy.Limit, int(count)),
		ResetAt:   now.Add(time.Duration(ttl) * time.Millisecond),
	}, nil
}

func (l *RedisLimiter) failOpen(now time.Time) Decision {
	return Decision{
		Allowed:   true,
		Limit:     l.policy.Limit,
		Remaining: l.policy.Limit,
		ResetAt:   now.Add(l.policy.Window),
	}
}
