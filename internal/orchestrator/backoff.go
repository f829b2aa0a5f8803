package orchestrator

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how failed inference attempts are retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth of retry delays.
	MaxDelay time.Duration
	// Jitter is the random variation applied to each delay, as a fraction
	// (0.2 means +/-20%). Zero disables jitter.
	Jitter float64
}

// DefaultRetryPolicy returns the standard retry policy for analysis tasks.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     0.2,
	}
}

// Delay computes the backoff delay before retrying after the given attempt
// (0-indexed): BaseDelay doubled per attempt, capped at MaxDelay, with
// jitter applied.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if max := float64(p.MaxDelay); p.MaxDelay > 0 && delay > max {
		delay = max
	}
	if p.Jitter > 0 {
		delay *= 1 + p.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(delay)
}

// sleep waits for the given duration or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
