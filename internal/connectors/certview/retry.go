package certview

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/logger"
)

// RetryConfig configures retries of transient transport failures.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	// InitialBackoff is the starting backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff, including server Retry-After hints.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied after each attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64
}

// DefaultRetry mirrors the deployed client: three retries, backoff factor two.
var DefaultRetry = RetryConfig{
	MaxAttempts:    4,
	InitialBackoff: 2 * time.Second,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// backoff returns the delay before retry number attempt (1-based).
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * c.BackoffFactor)
		if c.MaxBackoff > 0 && d > c.MaxBackoff {
			d = c.MaxBackoff
			break
		}
	}
	if c.Jitter > 0 {
		d += time.Duration(float64(d) * c.Jitter * (rand.Float64()*2 - 1))
	}
	return d
}

// clamp bounds a server-requested delay by MaxBackoff.
func (c RetryConfig) clamp(d time.Duration) time.Duration {
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRetry runs op until it succeeds, fails permanently, or the attempt
// budget is spent. Server Retry-After hints pause the limiter when one is given.
func withRetry(ctx context.Context, cfg RetryConfig, limiter *RateLimiter, op func(context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if limiter != nil {
			if werr := limiter.Wait(ctx); werr != nil {
				return werr
			}
		}

		err = op(ctx)
		if err == nil || !domain.IsRetryable(err) || attempt == attempts {
			return err
		}

		delay := cfg.backoff(attempt)
		var te *domain.TransportError
		if errors.As(err, &te) && te.RetryAfter > 0 {
			delay = cfg.clamp(te.RetryAfter)
			if limiter != nil {
				limiter.Pause(delay)
				delay = 0
			}
		}
		logger.Warn("certview: attempt %d/%d failed, retrying: %v", attempt, attempts, err)
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}
