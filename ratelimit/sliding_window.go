/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/RussellLuo/slidingwindow"

	"github.com/acronis/go-appkit/lrucache"
)

// SlidingWindowLimiter implements the sliding window rate limiting algorithm.
// Each client key gets its own window; per-key windows are stored in an LRU cache,
// so keys that went idle are eventually evicted and memory stays bounded.
type SlidingWindowLimiter struct {
	maxRate Rate
	windows *lrucache.LRUCache[string, *slidingwindow.Limiter]
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
// with the given rate and per-key store capacity.
func NewSlidingWindowLimiter(maxRate Rate, maxKeys int) (*SlidingWindowLimiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %s", maxRate)
	}
	windows, err := lrucache.New[string, *slidingwindow.Limiter](maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("new LRU in-memory store for keys: %w", err)
	}
	return &SlidingWindowLimiter{maxRate: maxRate, windows: windows}, nil
}

// Allow implements the Limiter interface.
// The per-key check is atomic: two concurrent requests can't both be admitted over the limit.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	window, _ := l.windows.GetOrAdd(key, func() *slidingwindow.Limiter {
		lim, _ := slidingwindow.NewLimiter(l.maxRate.Duration, int64(l.maxRate.Count),
			func() (slidingwindow.Window, slidingwindow.StopFunc) {
				return slidingwindow.NewLocalWindow()
			})
		return lim
	})
	if window.Allow() {
		return true, 0, nil
	}
	// The window advances on its duration boundary, so the earliest instant when
	// capacity may free up is the start of the next window period. The hint is a
	// lower bound: the weighted previous window can keep a bursting client denied
	// past the boundary.
	now := time.Now()
	retryAfter = now.Truncate(l.maxRate.Duration).Add(l.maxRate.Duration).Sub(now)
	return false, retryAfter, nil
}
