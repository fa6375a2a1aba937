package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverRateLimiter uses a primary limiter (typically Redis) and falls
// back to a local one when the primary errors, retrying the primary after
// a cooldown.
type FailoverRateLimiter struct {
	primary   RateLimiter
	fallback  RateLimiter
	logger    zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos of the last failed primary call
}

const primaryRetryAfter = time.Minute

func NewFailoverRateLimiter(primary, fallback RateLimiter, logger *zerolog.Logger) *FailoverRateLimiter {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "rate_limiter").Logger()
	}
	return &FailoverRateLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   log,
	}
}

func (r *FailoverRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.Allow(ctx, key)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("primary rate limiter failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck.Store(time.Now().UnixNano())
	}

	// Try to recover after the cooldown.
	if r.isDown.Load() && time.Since(time.Unix(0, r.lastCheck.Load())) > primaryRetryAfter {
		allowed, err := r.primary.Allow(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.Allow(ctx, key)
}
