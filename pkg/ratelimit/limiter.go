package ratelimit

import (
	"context"
	"time"
)

// Policy bounds a key to Limit requests per Window
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long until the window resets, at least one second
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return wait.Round(time.Second)
}

// Limiter counts a request against key and reports whether it may proceed.
// Implementations that return an error also return an allowing Decision so
// callers can fail open.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Policy() Policy
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
