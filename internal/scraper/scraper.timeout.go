package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/itsatony/flightwatch/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

// RunWithTimeout races fn against a timer. On timeout the call is abandoned:
// its eventual outcome is logged, not awaited, and an error wrapping
// errors.ErrTimeout is returned.
func RunWithTimeout[T any](ctx context.Context, d time.Duration, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	return runWithTimeout(ctx, d, label, fn, nil)
}

// runWithTimeout is RunWithTimeout with a cleanup for values that arrive
// after the caller gave up, so late resources can be released.
func runWithTimeout[T any](ctx context.Context, d time.Duration, label string, fn func(ctx context.Context) (T, error), late func(T)) (T, error) {
	var zero T
	if d <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(tctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && ctx.Err() == nil && stderrors.Is(tctx.Err(), context.DeadlineExceeded) && !errors.Is(r.err, errors.ErrTimeout) {
			return zero, fmt.Errorf("%w: %s after %s: %v", errors.ErrTimeout, label, d, r.err)
		}
		return r.v, r.err
	case <-tctx.Done():
		go func() {
			r := <-ch
			if r.err != nil {
				nuts.L.Warnf("[Timeout] Abandoned %s failed later: %v", label, r.err)
				return
			}
			nuts.L.Infof("[Timeout] Abandoned %s completed after the caller gave up", label)
			if late != nil {
				late(r.v)
			}
		}()
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w: %s after %s", errors.ErrTimeout, label, d)
	}
}

// runErrWithTimeout adapts error-only calls to RunWithTimeout
func runErrWithTimeout(ctx context.Context, d time.Duration, label string, fn func(ctx context.Context) error) error {
	_, err := RunWithTimeout(ctx, d, label, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
