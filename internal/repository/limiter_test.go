package repository

import (
	"context"
	"testing"
)

func TestMemoryRateLimiter(t *testing.T) {
	l := NewMemoryRateLimiter(1, 1)
	ctx := context.Background()

	allowed, err := l.Allow(ctx, "client-a")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !allowed {
		t.Fatalf("expected first request to pass")
	}

	allowed, err = l.Allow(ctx, "client-a")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatalf("expected second immediate request to be limited")
	}

	// A different client has its own bucket.
	allowed, err = l.Allow(ctx, "client-b")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !allowed {
		t.Fatalf("expected other client to pass")
	}
}

func TestMemoryRateLimiter_BurstDefault(t *testing.T) {
	l := NewMemoryRateLimiter(10, 0)
	if l.burst != 5 {
		t.Fatalf("expected default burst 5, got %d", l.burst)
	}
}
