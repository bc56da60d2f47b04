/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides per-client-key admission control based on a trailing time window.
//
// Two algorithms are available: a sliding window (default, avoids fixed-window boundary
// burst artifacts) and a leaky bucket (GCRA) variant. Per-key state lives in an LRU store,
// so memory stays bounded under churn of ephemeral client keys.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Alg represents a type for specifying the rate limiting algorithm.
type Alg int

// Supported rate limiting algorithms.
const (
	AlgSlidingWindow Alg = iota
	AlgLeakyBucket
)

// DefaultMaxKeys is the default capacity of the per-key state store.
const DefaultMaxKeys = 10000

// Default rate limit: 100 requests per trailing minute per client key.
const (
	DefaultMaxRequests = 100
	DefaultWindow      = time.Minute
)

// Rate describes the maximum allowed frequency of requests: Count per Duration.
type Rate struct {
	Count    int
	Duration time.Duration
}

// String returns a string representation of the rate.
func (r Rate) String() string {
	return fmt.Sprintf("%d/%s", r.Count, r.Duration)
}

// Limiter interface defines the admission control contract.
// Allow reports whether a request from the given client key should be admitted now.
// When the request is denied, retryAfter tells how long the client should wait
// before the next attempt may be admitted. The value is advisory, a lower bound
// rather than a guarantee of admission.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// Opts represents options for constructing a Limiter.
type Opts struct {
	// MaxKeys is the capacity of the per-key state store. Non-positive value means DefaultMaxKeys.
	MaxKeys int

	// MaxBurst is the additional burst capacity for the leaky bucket algorithm. Ignored by the sliding window.
	MaxBurst int
}

// NewLimiter creates a new Limiter with the given algorithm and rate.
func NewLimiter(alg Alg, maxRate Rate, opts Opts) (Limiter, error) {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	switch alg {
	case AlgSlidingWindow:
		return NewSlidingWindowLimiter(maxRate, maxKeys)
	case AlgLeakyBucket:
		return NewLeakyBucketLimiter(maxRate, opts.MaxBurst, maxKeys)
	default:
		return nil, fmt.Errorf("unknown rate limit alg %v", alg)
	}
}
