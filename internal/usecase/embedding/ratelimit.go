package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/dossier/internal/domain"
)

// RateLimitConfig bounds the request rate towards the embedding provider.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. Zero disables limiting.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
	// MaxWait is how long a caller may queue for a token before the request
	// is rejected with ErrRateLimited. Zero waits as long as ctx allows.
	MaxWait time.Duration
}

// RateLimiter is a token bucket in front of the provider.
type RateLimiter struct {
	limiter *rate.Limiter
	maxWait time.Duration
}

// NewRateLimiter returns nil when cfg disables limiting.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.BurstSize, 1)),
		maxWait: cfg.MaxWait,
	}
}

// Wait blocks until a request may be sent. It fails fast with ErrRateLimited
// when the token would not be available within MaxWait. A nil limiter never blocks.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	waitCtx := ctx
	if r.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.maxWait)
		defer cancel()
	}
	err := r.limiter.Wait(waitCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err() //nolint:wrapcheck // caller's own cancellation
	}
	return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
}
