/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package tracker keeps an exact count of in-flight requests and coordinates a clean drain on shutdown.
//
// Every admitted request is registered with TryRegister and released on completion.
// When the service receives a termination signal, BeginDrain stops new admissions
// and waits until all in-flight requests finish or the grace period elapses.
// Requests still in flight after the grace period are force-abandoned and their
// number is recorded, never silently dropped.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/acronis/go-appkit/log"
	"go.uber.org/atomic"
)

// DefaultGracePeriod is the default amount of time the drain waits for in-flight requests to finish.
const DefaultGracePeriod = time.Second * 30

// ErrShuttingDown is returned by TryRegister when the service is draining and new admissions are rejected.
var ErrShuttingDown = errors.New("service is shutting down")

// Status is a snapshot of the tracker's observable state.
type Status struct {
	InFlight int
	Draining bool
}

// DrainResult describes the outcome of a drain.
type DrainResult struct {
	// Abandoned is the number of requests that were still in flight when the drain gave up waiting.
	// Zero means the drain completed cleanly.
	Abandoned int

	// Elapsed is how long the drain waited.
	Elapsed time.Duration
}

// Tracker counts requests that are currently admitted and not yet completed.
// It's a process-wide singleton owned by the service and injected into every request-handling unit.
type Tracker struct {
	logger  log.FieldLogger
	metrics MetricsCollector

	mu       sync.Mutex
	count    int
	draining bool
	drained  chan struct{} // Created on drain start, closed when count reaches 0 while draining.
}

// Opts represents options for the Tracker.
type Opts struct {
	// Logger is used for logging drain progress.
	Logger log.FieldLogger

	// MetricsCollector is a collector of the tracker metrics. May be nil.
	MetricsCollector MetricsCollector
}

// New creates a new Tracker.
func New() *Tracker {
	return NewWithOpts(Opts{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(opts Opts) *Tracker {
	return &Tracker{logger: opts.Logger, metrics: opts.MetricsCollector}
}

// TryRegister atomically registers a new in-flight request and returns its Handle.
// It returns ErrShuttingDown if the drain has begun: no new admissions are accepted.
func (t *Tracker) TryRegister() (*Handle, error) {
	t.mu.Lock()
	if t.draining {
		t.mu.Unlock()
		if t.metrics != nil {
			t.metrics.RegistrationRejected()
		}
		return nil, ErrShuttingDown
	}
	t.count++
	count := t.count
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.InFlightChanged(count)
	}
	return &Handle{tracker: t}, nil
}

// InFlight returns the number of requests currently admitted and not yet completed.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Draining reports whether the drain has begun.
func (t *Tracker) Draining() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draining
}

// Snapshot returns a snapshot of the tracker's observable state
// (the payload for an external health/status endpoint).
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{InFlight: t.count, Draining: t.draining}
}

// BeginDrain stops new admissions and waits until all in-flight requests complete,
// the grace period elapses or ctx is done, whichever happens first.
// If the wait ends with requests still in flight, they are recorded as abandoned in the result.
// Non-positive gracePeriod means DefaultGracePeriod. Safe to call more than once:
// subsequent calls just wait for the same drain.
func (t *Tracker) BeginDrain(ctx context.Context, gracePeriod time.Duration) DrainResult {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}

	t.mu.Lock()
	if !t.draining {
		t.draining = true
		t.drained = make(chan struct{})
		if t.count == 0 {
			close(t.drained)
		}
	}
	drained := t.drained
	inFlight := t.count
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Info("drain started, no new requests will be admitted",
			log.Int("in_flight", inFlight),
			log.Duration("grace_period", gracePeriod),
		)
	}

	started := time.Now()
	timer := time.NewTimer(gracePeriod)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
	case <-ctx.Done():
	}

	t.mu.Lock()
	abandoned := t.count
	t.mu.Unlock()

	res := DrainResult{Abandoned: abandoned, Elapsed: time.Since(started)}
	if t.logger != nil {
		if res.Abandoned > 0 {
			t.logger.Warn("drain finished with abandoned requests",
				log.Int("abandoned", res.Abandoned),
				log.Duration("elapsed", res.Elapsed),
			)
		} else {
			t.logger.Info("drain finished, all in-flight requests completed",
				log.Duration("elapsed", res.Elapsed),
			)
		}
	}
	if t.metrics != nil {
		t.metrics.DrainFinished(res.Abandoned)
	}
	return res
}

// Handle represents a single registered in-flight request.
type Handle struct {
	tracker  *Tracker
	released atomic.Bool
}

// Release marks the request as completed and decrements the in-flight count.
// It's idempotent: repeated calls have no effect, the count is never decremented twice
// for the same registration.
func (h *Handle) Release() {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	t := h.tracker

	t.mu.Lock()
	t.count--
	count := t.count
	if t.draining && t.count == 0 {
		close(t.drained)
	}
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.InFlightChanged(count)
	}
}
