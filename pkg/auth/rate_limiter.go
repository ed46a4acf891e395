package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a simple fixed-window in-memory rate limiter.
// Good enough for a single process; distributed deployments should put a
// shared limiter in front instead.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	counters map[string]*windowCounter
}

type windowCounter struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		counters: make(map[string]*windowCounter),
	}
}

// NewIPRateLimiter creates a per-IP limiter with a one-minute window
func NewIPRateLimiter(perMinute int) *RateLimiter {
	return NewRateLimiter(perMinute, time.Minute)
}

// NewUserRateLimiter creates a per-user limiter with a one-minute window
func NewUserRateLimiter(perMinute int) *RateLimiter {
	return NewRateLimiter(perMinute, time.Minute)
}

// Allow reports whether the key may make another request
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	counter, ok := l.counters[key]
	if !ok || now.Sub(counter.windowStart) >= l.window {
		l.counters[key] = &windowCounter{count: 1, windowStart: now}
		l.evictStale(now)
		return true, nil
	}

	if counter.count >= l.limit {
		return false, nil
	}

	counter.count++
	return true, nil
}

// evictStale drops counters whose window has long passed. Called with the
// lock held; bounded by map size, which is itself bounded by eviction.
func (l *RateLimiter) evictStale(now time.Time) {
	if len(l.counters) < 10000 {
		return
	}
	for key, counter := range l.counters {
		if now.Sub(counter.windowStart) >= 2*l.window {
			delete(l.counters, key)
		}
	}
}
