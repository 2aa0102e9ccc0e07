package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/dossier/internal/domain"
)

func TestRateLimiter_Disabled(t *testing.T) {
	if l := NewRateLimiter(RateLimitConfig{}); l != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
}

func TestRateLimiter_RejectsBeyondMaxWait(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.1, BurstSize: 1, MaxWait: 10 * time.Millisecond})

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first request should use the burst: %v", err)
	}
	err := l.Wait(context.Background())
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_CallerCancellation(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.1, BurstSize: 1})
	_ = l.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrRateLimited) {
		t.Fatal("caller cancellation must not count as rate limiting")
	}
}
