package ratelimit

import (
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	limiter := NewInMemory(50 * time.Millisecond)
	key := "client:203.0.113.7"

	first := limiter.Allow(key, 2)
	if !first.Allowed || first.Count != 1 || first.Remaining != 1 {
		t.Fatalf("unexpected first decision: %+v", first)
	}
	second := limiter.Allow(key, 2)
	if !second.Allowed || second.Count != 2 || second.Remaining != 0 {
		t.Fatalf("unexpected second decision: %+v", second)
	}
	third := limiter.Allow(key, 2)
	if third.Allowed || third.Count != 3 || third.Remaining != 0 {
		t.Fatalf("unexpected third decision: %+v", third)
	}

	time.Sleep(70 * time.Millisecond)
	reset := limiter.Allow(key, 2)
	if !reset.Allowed || reset.Count != 1 {
		t.Fatalf("expected fresh window after expiry, got %+v", reset)
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewInMemory(time.Minute)
	if d := limiter.Allow("client:a", 1); !d.Allowed {
		t.Fatalf("first key should be allowed: %+v", d)
	}
	if d := limiter.Allow("client:a", 1); d.Allowed {
		t.Fatalf("first key should be exhausted: %+v", d)
	}
	if d := limiter.Allow("client:b", 1); !d.Allowed {
		t.Fatalf("second key must not share the first key's count: %+v", d)
	}
}

func TestMemoryLimiterFloors(t *testing.T) {
	limiter := NewInMemory(0)
	if limiter.window != time.Minute {
		t.Fatalf("expected default one-minute window, got %v", limiter.window)
	}
	decision := limiter.Allow("k", 0)
	if !decision.Allowed || decision.Limit != 1 {
		t.Fatalf("expected limit floored to 1, got %+v", decision)
	}
}

func TestFailOpen(t *testing.T) {
	d := failOpen(7, time.Minute)
	if !d.Allowed || d.Count != 0 || d.Limit != 7 || d.Remaining != 7 {
		t.Fatalf("unexpected fail-open decision: %+v", d)
	}
	if d.ResetAt.Before(time.Now().UTC()) {
		t.Fatalf("resetAt should be in the future, got %v", d.ResetAt)
	}
}
