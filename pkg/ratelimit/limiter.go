package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one Allow call. Count includes the request
// being decided, so the first call in a window reports Count 1.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter budgets requests per key over a fixed window. The gateway keys by
// client IP; callers may key by anything.
type Limiter interface {
	Allow(key string, limit int) Decision
}

// MemoryLimiter is the single-process fixed-window limiter. It is the
// fallback when redis is unavailable, so counts are per instance.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	buckets map[string]bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

func NewInMemory(window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		window:  window,
		buckets: make(map[string]bucket),
	}
}

func (l *MemoryLimiter) Allow(key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	now := time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, k)
		}
	}
	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = bucket{resetAt: now.Add(l.window)}
	}
	b.count++
	l.buckets[key] = b

	return decisionFor(b.count, limit, b.resetAt)
}

func decisionFor(count, limit int, resetAt time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// failOpen is the decision when no counter is reachable. Negotiation traffic
// is low volume; dropping requests on limiter failure would hurt more than
// rejecting legitimate submissions.
func failOpen(limit int, window time.Duration) Decision {
	return Decision{
		Allowed:   true,
		Count:     0,
		Limit:     limit,
		Remaining: limit,
		ResetAt:   time.Now().UTC().Add(window),
	}
}
