/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package breaker

import (
	"sync"
	"time"

	"github.com/acronis/go-appkit/log"
)

// State represents a state of the circuit breaker.
type State int

// Circuit breaker states.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns a string representation of the state.
// The values match the ones exposed in the status endpoint payload.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// StateChangeHandler is a function that is called on every breaker state transition.
// It's called outside of the breaker's critical section, so it's safe to call breaker methods from it.
type StateChangeHandler func(dependency string, from, to State)

// Status is a snapshot of the breaker's observable state.
type Status struct {
	State                State
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	OpenedAt             time.Time // Zero if the breaker has never been opened or was closed/reset after recovery.
}

// Breaker is a circuit breaker guarding calls to a single named dependency.
// It prevents hammering a dependency that is already failing and detects its recovery automatically:
// Closed -> (failure threshold reached) -> Open -> (recovery timeout elapsed) -> HalfOpen ->
// (success threshold reached) -> Closed. Any failure in HalfOpen reopens the breaker immediately.
//
// All state mutations are small mutex-guarded critical sections,
// the guarded call itself is always executed outside of any lock.
type Breaker struct {
	name             string
	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration

	logger        log.FieldLogger
	metrics       MetricsCollector
	onStateChange StateChangeHandler

	nowFn func() time.Time

	mu                   sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time
	trialInFlight        bool
}

// transition describes a performed state change. Zero value means "no transition happened".
type transition struct {
	from, to State
	occurred bool
}

func newBreaker(name string, cfg *Config, logger log.FieldLogger, metrics MetricsCollector, onStateChange StateChangeHandler) *Breaker {
	return &Breaker{
		name:             name,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		recoveryTimeout:  time.Duration(cfg.RecoveryTimeout),
		logger:           logger,
		metrics:          metrics,
		onStateChange:    onStateChange,
		nowFn:            time.Now,
		state:            StateClosed,
	}
}

// BeforeCall reports whether a call to the dependency may proceed.
// It returns nil if the call is allowed and *OpenError if the call must fail fast.
// In Open state the call is allowed only after the recovery timeout has elapsed,
// in which case the breaker transitions to HalfOpen and the call becomes a trial.
// While a trial is in flight, all other callers are rejected to avoid a recovery stampede.
func (b *Breaker) BeforeCall() error {
	b.mu.Lock()
	var tr transition
	var rejected bool
	switch b.state {
	case StateClosed:
	case StateOpen:
		if b.nowFn().Sub(b.openedAt) >= b.recoveryTimeout {
			tr = b.setStateLocked(StateHalfOpen)
			b.trialInFlight = true
		} else {
			rejected = true
		}
	case StateHalfOpen:
		if b.trialInFlight {
			rejected = true
		} else {
			b.trialInFlight = true
		}
	}
	b.mu.Unlock()

	b.notify(tr)
	if rejected {
		if b.metrics != nil {
			b.metrics.CallRejected(b.name)
		}
		return &OpenError{Dependency: b.name}
	}
	return nil
}

// OnSuccess reports a successful call to the dependency.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	var tr transition
	switch b.state {
	case StateClosed:
		b.consecutiveFailures = 0
	case StateHalfOpen:
		b.trialInFlight = false
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.successThreshold {
			tr = b.setStateLocked(StateClosed)
		}
	case StateOpen:
		// Not reachable in the normal flow: no call is allowed while the breaker is open.
	}
	b.mu.Unlock()
	b.notify(tr)
}

// OnFailure reports a failed call to the dependency.
// A single trial failure in HalfOpen reopens the breaker immediately,
// it does not wait for a new full failure threshold.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	var tr transition
	switch b.state {
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			tr = b.setStateLocked(StateOpen)
		}
	case StateHalfOpen:
		b.trialInFlight = false
		tr = b.setStateLocked(StateOpen)
	case StateOpen:
	}
	b.mu.Unlock()
	b.notify(tr)
}

// State returns the current state of the breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Status returns a snapshot of the breaker's observable state.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		State:                b.state,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		OpenedAt:             b.openedAt,
	}
}

// Reset administratively forces the breaker into the Closed state and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	var tr transition
	if b.state != StateClosed {
		tr = b.setStateLocked(StateClosed)
	} else {
		b.consecutiveFailures = 0
		b.consecutiveSuccesses = 0
	}
	b.mu.Unlock()
	b.notify(tr)
}

// setStateLocked performs the state transition and related bookkeeping. Must be called under b.mu.
func (b *Breaker) setStateLocked(to State) transition {
	from := b.state
	if from == to {
		return transition{}
	}
	b.state = to
	switch to {
	case StateOpen:
		b.openedAt = b.nowFn()
		b.consecutiveSuccesses = 0
		b.trialInFlight = false
	case StateHalfOpen:
		// openedAt is intentionally kept: recovery timing is measured from the original Open transition.
		b.consecutiveSuccesses = 0
	case StateClosed:
		b.consecutiveFailures = 0
		b.consecutiveSuccesses = 0
		b.openedAt = time.Time{}
		b.trialInFlight = false
	}
	return transition{from: from, to: to, occurred: true}
}

// notify emits the state transition event. Must be called outside of b.mu.
func (b *Breaker) notify(tr transition) {
	if !tr.occurred {
		return
	}
	if b.logger != nil {
		b.logger.Info("circuit breaker state changed",
			log.String("dependency", b.name),
			log.String("from_state", tr.from.String()),
			log.String("to_state", tr.to.String()),
		)
	}
	if b.metrics != nil {
		b.metrics.StateChanged(b.name, tr.from, tr.to)
	}
	if b.onStateChange != nil {
		b.onStateChange(b.name, tr.from, tr.to)
	}
}
