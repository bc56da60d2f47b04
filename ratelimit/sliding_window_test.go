/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
)

type SlidingWindowLimiterTestSuite struct {
	suite.Suite
}

func TestSlidingWindowLimiter(t *testing.T) {
	suite.Run(t, new(SlidingWindowLimiterTestSuite))
}

func (ts *SlidingWindowLimiterTestSuite) TestAllowUpToLimit() {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 100, Duration: time.Minute}, DefaultMaxKeys)
	ts.Require().NoError(err)

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		allow, retryAfter, allowErr := limiter.Allow(ctx, "192.0.2.1")
		ts.Require().NoError(allowErr)
		ts.Require().True(allow, "request %d within the limit must be admitted", i+1)
		ts.Require().Equal(time.Duration(0), retryAfter)
	}

	// The 101st request within the window is denied with a positive retry-after
	// not exceeding the window duration.
	allow, retryAfter, allowErr := limiter.Allow(ctx, "192.0.2.1")
	ts.Require().NoError(allowErr)
	ts.False(allow)
	ts.Greater(retryAfter, time.Duration(0))
	ts.LessOrEqual(retryAfter, time.Minute)
}

func (ts *SlidingWindowLimiterTestSuite) TestKeysAreIndependent() {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 1, Duration: time.Minute}, DefaultMaxKeys)
	ts.Require().NoError(err)

	ctx := context.Background()
	allow, _, _ := limiter.Allow(ctx, "192.0.2.1")
	ts.True(allow)
	allow, _, _ = limiter.Allow(ctx, "192.0.2.1")
	ts.False(allow)

	// A different client key has its own window.
	allow, _, _ = limiter.Allow(ctx, "192.0.2.2")
	ts.True(allow)
}

func (ts *SlidingWindowLimiterTestSuite) TestWindowSlides() {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 2, Duration: time.Millisecond * 100}, DefaultMaxKeys)
	ts.Require().NoError(err)

	ctx := context.Background()
	allow, _, _ := limiter.Allow(ctx, "key")
	ts.True(allow)
	allow, _, _ = limiter.Allow(ctx, "key")
	ts.True(allow)
	allow, retryAfter, _ := limiter.Allow(ctx, "key")
	ts.False(allow)

	time.Sleep(retryAfter + time.Millisecond*110)
	allow, _, _ = limiter.Allow(ctx, "key")
	ts.True(allow, "capacity must free up after the window passes")
}

func (ts *SlidingWindowLimiterTestSuite) TestConcurrentAdmissionsNotOverLimit() {
	const limit = 50
	limiter, err := NewSlidingWindowLimiter(Rate{Count: limit, Duration: time.Minute}, DefaultMaxKeys)
	ts.Require().NoError(err)

	admitted := atomic.NewInt32(0)
	var wg sync.WaitGroup
	for i := 0; i < limit*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allow, _, allowErr := limiter.Allow(context.Background(), "key")
			ts.Require().NoError(allowErr)
			if allow {
				admitted.Inc()
			}
		}()
	}
	wg.Wait()
	ts.EqualValues(limit, admitted.Load(), "concurrent requests must not be admitted over the limit")
}

func (ts *SlidingWindowLimiterTestSuite) TestInvalidRate() {
	_, err := NewSlidingWindowLimiter(Rate{Count: 0, Duration: time.Minute}, DefaultMaxKeys)
	ts.Error(err)
	_, err = NewSlidingWindowLimiter(Rate{Count: 10, Duration: 0}, DefaultMaxKeys)
	ts.Error(err)
}

func (ts *SlidingWindowLimiterTestSuite) TestKeyStoreBounded() {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 1, Duration: time.Minute}, 10)
	ts.Require().NoError(err)

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		_, _, allowErr := limiter.Allow(ctx, string(rune('a'+i%26))+string(rune('0'+i/26)))
		ts.Require().NoError(allowErr)
	}
	ts.LessOrEqual(limiter.windows.Len(), 10, "idle keys must be evicted to bound memory")
}
