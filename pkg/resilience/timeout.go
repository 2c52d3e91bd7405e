package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

// WithTimeout runs fn with a context cancelled after timeout. A timeout of
// zero or less runs fn directly. When fn overruns, the returned error wraps
// both context.DeadlineExceeded and errors.ErrTimeout.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	_, err := WithTimeoutValue(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// WithTimeoutValue is WithTimeout for functions that produce a value. A
// value produced after the deadline is discarded.
func WithTimeoutValue[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- outcome{val: v, err: err}
	}()

	var zero T
	select {
	case out := <-done:
		return out.val, out.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, timeout, context.DeadlineExceeded)
	}
}
