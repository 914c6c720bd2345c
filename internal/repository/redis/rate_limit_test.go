package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitRepository_Hit(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "ratelimit", TTL: 5 * time.Minute})

	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		count, err := repo.Hit(ctx, "estimate:10.0.0.1", time.Minute, base.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("Hit returned error: %v", err)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}

	count, err := repo.Hit(ctx, "estimate:10.0.0.1", time.Minute, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Hit returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected old attempts trimmed, got count %d", count)
	}

	remaining := server.TTL("ratelimit:estimate:10.0.0.1")
	if remaining <= 0 || remaining > 5*time.Minute {
		t.Fatalf("expected ttl within (0, 5m], got %v", remaining)
	}
}

func TestRateLimitRepository_InvalidWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})

	if _, err := repo.Hit(context.Background(), "x", 0, time.Now()); err == nil {
		t.Fatal("expected error for zero window")
	}
}
