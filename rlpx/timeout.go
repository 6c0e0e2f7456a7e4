package rlpx

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeoutExpired is returned when an operation loses its race against
// its deadline. It is distinct from any peer-level protocol error, per
// §5/§7.
var ErrTimeoutExpired = errors.New("rlpx: timeout expired")

// withTimeout races fn against a timer of duration d, the `op || timeout(d)`
// idiom of §5: the first to complete wins, and the loser's goroutine is
// abandoned to return on its own once fn notices ctx was cancelled. Mirrors
// the teacher's TimeoutHeaderFetcher/TimeoutBodyFetcher construction in
// pkg/sync/downloader.go, generalized to an arbitrary fn.
func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTimeoutExpired, ctx.Err())
	}
}

// runParallel implements the `a && b` parallel-group idiom of §5/§9: every
// fn is started concurrently, sharing one ctx; the first failure cancels
// ctx (which fn implementations are expected to observe) and is returned.
// runParallel returns nil only if every fn returns nil.
func runParallel(ctx context.Context, fns ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(fns))
	for _, fn := range fns {
		fn := fn
		go func() {
			errs <- fn(ctx)
		}()
	}

	var first error
	for range fns {
		if err := <-errs; err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}
