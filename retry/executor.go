/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-resilience/breaker"
)

// Executor executes a single logical operation against a named dependency
// with bounded retry and backoff, honoring the dependency's circuit breaker.
type Executor struct {
	breakers *breaker.Registry
	logger   log.FieldLogger
}

// ExecutorOpts represents options for the Executor.
type ExecutorOpts struct {
	// Logger is used for logging retry attempts.
	Logger log.FieldLogger
}

// NewExecutor creates a new Executor bound to the given breaker registry.
func NewExecutor(breakers *breaker.Registry) *Executor {
	return NewExecutorWithOpts(breakers, ExecutorOpts{})
}

// NewExecutorWithOpts is a more configurable version of NewExecutor.
func NewExecutorWithOpts(breakers *breaker.Registry, opts ExecutorOpts) *Executor {
	return &Executor{breakers: breakers, logger: opts.Logger}
}

// Do executes fn against the named dependency with retry according to policy p.
//
// Before every attempt the dependency's circuit breaker is consulted. A breaker rejection
// fails immediately with *breaker.OpenError and doesn't consume the attempt budget:
// it's a fast, zero-cost failure distinct from a call failure. The outcome of every performed
// attempt is reported back to the breaker; a panicking fn is reported as a failure before
// the panic propagates to the caller.
//
// A non-retryable error (per p.IsRetryable) is returned after a single attempt, wrapped with the
// attempt number. When the attempt budget is consumed, *ExhaustedError wrapping the last error
// is returned. The backoff sleep between attempts is cancellable: if ctx is done while waiting,
// Do returns ctx.Err() promptly.
func (e *Executor) Do(ctx context.Context, dependency string, p Policy, fn Func) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	bp := p.Backoff
	if bp == nil {
		bp = NewExponentialBackoffPolicy(DefaultInitialInterval, DefaultMaxInterval)
	}
	bf := bp.NewBackOff()

	for attempt := 1; ; attempt++ {
		if err := e.breakers.BeforeCall(dependency); err != nil {
			return err
		}

		err := e.attempt(ctx, dependency, fn)
		if err == nil {
			return nil
		}

		if p.IsRetryable == nil || !p.IsRetryable(err) {
			return fmt.Errorf("attempt %d failed with non-retryable error: %w", attempt, err)
		}
		if attempt == maxAttempts {
			return &ExhaustedError{Attempts: attempt, Err: err}
		}

		delay := bf.NextBackOff()
		if delay == backoff.Stop {
			return &ExhaustedError{Attempts: attempt, Err: err}
		}
		if e.logger != nil {
			e.logger.Warn("dependency call failed, will retry",
				log.String("dependency", dependency),
				log.Int("attempt", attempt),
				log.Duration("delay", delay),
				log.Error(err),
			)
		}
		if err = sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// attempt runs fn and reports its outcome to the dependency's breaker.
// The outcome is reported from a defer: a panicking fn counts as a failure,
// so the breaker's half-open trial slot is never left occupied by a call
// that will never report back.
func (e *Executor) attempt(ctx context.Context, dependency string, fn Func) (err error) {
	finished := false
	defer func() {
		if finished && err == nil {
			e.breakers.OnSuccess(dependency)
			return
		}
		e.breakers.OnFailure(dependency)
	}()
	err = fn(ctx)
	finished = true
	return err
}

// sleep waits for the given delay or until ctx is done, whichever happens first.
func sleep(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
