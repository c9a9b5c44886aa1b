package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewRedisDefaults(t *testing.T) {
	lim := NewRedis(nil, 0)
	if lim.Window != time.Minute {
		t.Fatalf("expected default one-minute window, got %v", lim.Window)
	}
	if lim.Prefix != "ratereview:rl:" {
		t.Fatalf("unexpected key prefix %q", lim.Prefix)
	}
	if lim.Fallback == nil {
		t.Fatal("expected in-memory fallback to be initialized")
	}
}

func TestRedisLimiterSharedWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedis(client, 25*time.Millisecond)
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
	if third.Allowed || third.Count != 3 {
		t.Fatalf("unexpected third decision: %+v", third)
	}

	mr.FastForward(30 * time.Millisecond)
	reset := limiter.Allow(key, 2)
	if !reset.Allowed || reset.Count != 1 {
		t.Fatalf("expected fresh window after expiry, got %+v", reset)
	}
}

func TestRedisLimiterOutageUsesFallback(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  5 * time.Millisecond,
		ReadTimeout:  5 * time.Millisecond,
		WriteTimeout: 5 * time.Millisecond,
		MaxRetries:   0,
	})
	defer client.Close()

	limiter := NewRedis(client, time.Second)
	if d := limiter.Allow("client:x", 1); !d.Allowed || d.Count != 1 {
		t.Fatalf("expected fallback allow on redis outage, got %+v", d)
	}
	if d := limiter.Allow("client:x", 1); d.Allowed {
		t.Fatalf("fallback limiter must still enforce the limit, got %+v", d)
	}
}

func TestRedisLimiterNilClientNoFallbackFailsOpen(t *testing.T) {
	lim := &RedisLimiter{Window: 2 * time.Second}
	decision := lim.Allow("k1", 0)
	if !decision.Allowed || decision.Limit != 1 || decision.Count != 0 {
		t.Fatalf("expected fail-open decision, got %+v", decision)
	}
}

func TestRedisLimiterBadScriptResult(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	original := windowScript
	windowScript = redis.NewScript(`return "bad-value"`)
	defer func() { windowScript = original }()

	t.Run("no_fallback_fails_open", func(t *testing.T) {
		lim := &RedisLimiter{Client: client, Window: 100 * time.Millisecond, Prefix: "ratereview:rl:"}
		decision := lim.Allow("client:a", 5)
		if !decision.Allowed || decision.Count != 0 || decision.Limit != 5 {
			t.Fatalf("expected fail-open on bad script result, got %+v", decision)
		}
	})

	t.Run("fallback_enforces", func(t *testing.T) {
		lim := NewRedis(client, time.Second)
		if d := lim.Allow("client:b", 1); !d.Allowed || d.Count != 1 {
			t.Fatalf("expected fallback first decision, got %+v", d)
		}
		if d := lim.Allow("client:b", 1); d.Allowed {
			t.Fatalf("expected fallback enforcement, got %+v", d)
		}
	})
}

func TestRedisLimiterNegativeTTLUsesWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lim := NewRedis(client, 500*time.Millisecond)
	// Key without expiry makes PTTL negative.
	if err := client.Set(context.Background(), lim.Prefix+"client:c", "1", 0).Err(); err != nil {
		t.Fatalf("seed redis key: %v", err)
	}

	decision := lim.Allow("client:c", 10)
	if decision.ResetAt.Before(time.Now().UTC()) {
		t.Fatalf("expected resetAt in future, got %v", decision.ResetAt)
	}
}
