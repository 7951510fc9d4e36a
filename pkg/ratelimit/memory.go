package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the number of keys tracked when none is configured
const DefaultCapacity = 10000

type window struct {
	mu    sync.Mutex
	start time.Time
	count int
}

// MemoryLimiter is a single-process fixed-window limiter
type MemoryLimiter struct {
	policy  Policy
	windows *lru.Cache[string, *window]
	mu      sync.Mutex // guards get-or-create on windows
	now     func() time.Time
}

// NewMemoryLimiter creates a limiter tracking at most capacity keys. When
// the capacity is reached the least recently used key is evicted, which
// resets its count.
func NewMemoryLimiter(policy Policy, capacity int) (*MemoryLimiter, error) {
	if policy.Limit <= 0 || policy.Window <= 0 {
		return nil, fmt.Errorf("invalid rate limit policy: %d per %v", policy.Limit, policy.Window)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[string, *window](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create window store: %w", err)
	}
	return &MemoryLimiter{
		policy:  policy,
		windows: cache,
		now:     time.Now,
	}, nil
}

// Policy implements Limiter
func (l *MemoryLimiter) Policy() Policy {
	return l.policy
}

// Allow implements Limiter
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	w, ok := l.windows.Get(key)
	if !ok {
		w = &window{}
		l.windows.Add(key, w)
	}
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	if w.start.IsZero() || !now.Before(w.start.Add(l.policy.Window)) {
		w.start = now
		w.count = 0
	}
	w.count++

	return Decision{
		Allowed:   w.count <= l.policy.Limit,
		Limit:     l.policy.Limit,
		Remaining: remaining(l.policy.Limit, w.count),
		ResetAt:   w.start.Add(l.policy.Window),
	}, nil
}

// Len returns the number of tracked keys
func (l *MemoryLimiter) Len() int {
	return l.windows.Len()
}

// Sweep drops every window that has elapsed and returns how many were removed
func (l *MemoryLimiter) Sweep() int {
	now := l.now()
	removed := 0
	for _, key := range l.windows.Keys() {
		w, ok := l.windows.Peek(key)
		if !ok {
			continue
		}
		w.mu.Lock()
		expired := !now.Before(w.start.Add(l.policy.Window))
		w.mu.Unlock()
		if expired {
			l.mu.Lock()
			// the key may have been replaced since Peek
			if cur, ok := l.windows.Peek(key); ok && cur == w {
				l.windows.Remove(key)
				removed++
			}
			l.mu.Unlock()
		}
	}
	return removed
}
