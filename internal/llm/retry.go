package llm

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryProvider is a decorator that retries failed generations with
// exponential backoff. The wait before retry n (0-based) is
// InitialWait * Multiplier^n, capped at MaxWait.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryProvider{inner: p, config: cfg, sleep: sleepCtx}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	attempts := 0

	for attempt := range r.config.MaxAttempts {
		attempts++
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !r.shouldRetry(err) {
			break
		}

		if attempt == r.config.MaxAttempts-1 {
			break
		}

		if err := r.sleep(ctx, r.backoff(attempt, err)); err != nil {
			lastErr = err
			break
		}
	}

	return nil, &GenerationFailure{Attempts: attempts, Err: lastErr}
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// shouldRetry reports whether another attempt is worthwhile. Every
// provider failure is retried; only cancellation stops the loop early.
func (r *RetryProvider) shouldRetry(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// backoff computes the wait duration for the given attempt.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	wait := time.Duration(float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt)))
	if r.config.MaxWait > 0 && wait > r.config.MaxWait {
		wait = r.config.MaxWait
	}

	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > wait {
		return rl.RetryAfter
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
