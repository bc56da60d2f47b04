/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default values of the retry policy parameters.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = time.Second
	DefaultMaxInterval     = time.Second * 4
)

// IsRetryable defines a func that can tell if error is retryable (transient) as opposed to persistent.
type IsRetryable func(error) bool

// Func is an operation against a dependency that can be potentially retried.
type Func func(ctx context.Context) error

// BackoffPolicy defines a backoff strategy between retry attempts.
type BackoffPolicy interface {
	NewBackOff() backoff.BackOff
}

// The BackoffPolicyFunc type is an adapter to allow the use of ordinary functions as BackoffPolicy.
type BackoffPolicyFunc func() backoff.BackOff

// NewBackOff implements BackoffPolicy.
func (f BackoffPolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// ExponentialBackoffPolicy means delays growing exponentially (2.0 multiplier) from InitialInterval,
// capped by MaxInterval. Delays are jittered by the underlying backoff implementation.
type ExponentialBackoffPolicy struct {
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewExponentialBackoffPolicy returns an exponential backoff policy with the given initial and maximum intervals.
func NewExponentialBackoffPolicy(initialInterval, maxInterval time.Duration) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval, maxInterval}
}

// NewBackOff implements BackoffPolicy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	eb.MaxInterval = p.maxInterval
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0 // The attempt budget is enforced by the executor, not by elapsed time.
	eb.Reset()
	return eb
}

// ConstantBackoffPolicy means constant interval delays between attempts.
type ConstantBackoffPolicy struct {
	interval time.Duration
}

// NewConstantBackoffPolicy returns a constant backoff policy with the given interval.
func NewConstantBackoffPolicy(interval time.Duration) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval}
}

// NewBackOff implements BackoffPolicy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	bf := backoff.NewConstantBackOff(p.interval)
	bf.Reset()
	return bf
}

// Policy defines the retry behavior for a single logical operation against a dependency.
// It's immutable configuration and is supplied per call site:
// the IsRetryable predicate is the single point of control over what may be retried,
// so operations that are not idempotent are never retried unless the caller explicitly marks them retry-safe.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	// Non-positive value means DefaultMaxAttempts.
	MaxAttempts int

	// Backoff is the delay strategy between attempts. Nil means the default exponential policy.
	Backoff BackoffPolicy

	// IsRetryable classifies an error as transient (retryable) or permanent.
	// Nil means no error is retryable: unknown operations are treated as non-idempotent.
	IsRetryable IsRetryable
}

// NewPolicy creates a Policy with the given attempt budget, backoff strategy and retryable predicate.
func NewPolicy(maxAttempts int, bp BackoffPolicy, isRetryable IsRetryable) Policy {
	return Policy{MaxAttempts: maxAttempts, Backoff: bp, IsRetryable: isRetryable}
}

// DefaultPolicy returns a policy with default attempt budget and backoff that retries transient errors only
// (see Transient and IsTransient).
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     NewExponentialBackoffPolicy(DefaultInitialInterval, DefaultMaxInterval),
		IsRetryable: IsTransient,
	}
}
