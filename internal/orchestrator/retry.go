package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/proprogresja/venue-events/internal/logger"
)

// RetryConfig holds the parameters for the retry strategy
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do executes fn with exponential back-off. fn receives the attempt number starting at 1.
// It returns the number of attempts used and the last error.
func (r *RetryConfig) Do(ctx context.Context, operation string, fn func(attempt int) error) (int, error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return attempt, nil
		}

		if attempt < attempts {
			logger.Warn("Attempt failed, retrying", logger.Fields{
				"operation": operation,
				"attempt":   attempt,
				"max":       attempts,
				"delay":     delay.String(),
				"error":     lastErr.Error(),
			})
			if err := sleep(ctx, delay); err != nil {
				return attempt, fmt.Errorf("%s interrupted after %d attempts: %w", operation, attempt, lastErr)
			}
			delay *= 2
		}
	}

	return attempts, fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
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
