/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLeakyBucketLimiterBurst(t *testing.T) {
	limiter, err := NewLeakyBucketLimiter(Rate{Count: 1, Duration: time.Second}, 2, DefaultMaxKeys)
	require.NoError(t, err)

	ctx := context.Background()

	// Burst capacity admits the first requests at once.
	for i := 0; i < 3; i++ {
		allow, _, allowErr := limiter.Allow(ctx, "key")
		require.NoError(t, allowErr)
		require.True(t, allow, "request %d within the burst must be admitted", i+1)
	}

	allow, retryAfter, allowErr := limiter.Allow(ctx, "key")
	require.NoError(t, allowErr)
	require.False(t, allow)
	require.Greater(t, retryAfter, time.Duration(0))
}

func TestLeakyBucketLimiterKeysAreIndependent(t *testing.T) {
	limiter, err := NewLeakyBucketLimiter(Rate{Count: 1, Duration: time.Minute}, 0, DefaultMaxKeys)
	require.NoError(t, err)

	ctx := context.Background()
	allow, _, _ := limiter.Allow(ctx, "192.0.2.1")
	require.True(t, allow)
	allow, _, _ = limiter.Allow(ctx, "192.0.2.1")
	require.False(t, allow)
	allow, _, _ = limiter.Allow(ctx, "192.0.2.2")
	require.True(t, allow)
}

func TestNewLimiterFactory(t *testing.T) {
	lim, err := NewLimiter(AlgSlidingWindow, Rate{Count: 10, Duration: time.Minute}, Opts{})
	require.NoError(t, err)
	require.IsType(t, &SlidingWindowLimiter{}, lim)

	lim, err = NewLimiter(AlgLeakyBucket, Rate{Count: 10, Duration: time.Minute}, Opts{MaxBurst: 5})
	require.NoError(t, err)
	require.IsType(t, &LeakyBucketLimiter{}, lim)

	_, err = NewLimiter(Alg(42), Rate{Count: 10, Duration: time.Minute}, Opts{})
	require.Error(t, err)
}
