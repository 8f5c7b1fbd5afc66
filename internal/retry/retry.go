// Package retry provides a retry mechanism with exponential backoff for
// calls against external services (Nord Pool, the forecast service and
// Fox Cloud). Those APIs are polled once per night, so a failed call is
// worth a couple of patient retries before the run is declared failed.
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultMaxAttempts    = 4
	defaultInitialBackoff = 5 * time.Second
	defaultMaxBackoff     = 20 * time.Second
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts    int           // Maximum number of attempts (default: 4)
	InitialBackoff time.Duration // Initial backoff duration (default: 5s)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 20s)
}

// Do executes the given function until it succeeds or the attempts are
// exhausted. All errors are considered retryable; the external services
// involved fail almost exclusively with transient network conditions.
// Context cancellation is checked between attempts.
func Do[T any](ctx context.Context, fn func() (T, error), cfg Config) (T, error) {
	var zero T

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := calculateBackoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// calculateBackoff calculates the backoff duration for a given attempt.
// Uses exponential backoff: 2^attempt * initial, capped at maxBackoff.
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * initial

	if backoff > max {
		return max
	}

	return backoff
}
