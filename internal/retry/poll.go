// Package retry provides fixed-interval polling with a bounded number of
// attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

// Policy bounds a poll loop.
type Policy struct {
	// MaxAttempts is the total number of check invocations, including the first.
	MaxAttempts int
	// Delay is slept between attempts. There is no delay after the last one.
	Delay time.Duration
	// Sleep waits for d or until ctx is done. Nil uses SleepContext.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *zap.Logger
}

// CheckFunc checks once whether the awaited thing is ready. A non-nil error is
// logged and treated as not ready unless it is wrapped with Stop.
type CheckFunc[T any] func(ctx context.Context, attempt int) (value T, ready bool, err error)

type stopError struct{ err error }

func (s stopError) Error() string { return s.err.Error() }
func (s stopError) Unwrap() error { return s.err }

// Stop marks a check error as terminal so polling ends immediately.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return stopError{err: err}
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll invokes check until it reports ready, returning its value. After
// MaxAttempts unready attempts it fails with a PollTimeout naming what.
func Poll[T any](ctx context.Context, p Policy, what string, check CheckFunc[T]) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, fmt.Errorf("poll %q: max attempts must be positive, got %d", what, p.MaxAttempts)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("poll %q cancelled after %d attempts: %w", what, attempt-1, err)
		}

		value, ready, err := check(ctx, attempt)
		if err != nil {
			var stop stopError
			if errors.As(err, &stop) {
				return zero, stop.err
			}
			lastErr = err
			logger.Debug("Check failed; treating as not ready.",
				zap.String("awaiting", what), zap.Int("attempt", attempt), zap.Error(err))
		} else if ready {
			logger.Debug("Poll satisfied.", zap.String("awaiting", what), zap.Int("attempt", attempt))
			return value, nil
		}

		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return zero, fmt.Errorf("poll %q cancelled after %d attempts: %w", what, attempt, err)
		}
	}

	return zero, schemas.NewError(schemas.ErrCodePollTimeout, what,
		timeoutCause(p.MaxAttempts, p.Delay, lastErr))
}

func timeoutCause(attempts int, delay time.Duration, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("not ready after %d attempts at %s intervals (last error: %w)", attempts, delay, lastErr)
	}
	return fmt.Errorf("not ready after %d attempts at %s intervals", attempts, delay)
}
