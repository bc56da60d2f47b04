/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package status exposes the observable state of the resilience layer over HTTP:
// per-dependency circuit breaker states and the graceful shutdown progress.
package status

import (
	"net/http"
	"time"

	appkitmw "github.com/acronis/go-appkit/httpserver/middleware"
	"github.com/acronis/go-appkit/restapi"

	"github.com/acronis/go-resilience/breaker"
	"github.com/acronis/go-resilience/tracker"
)

// BreakerStatus describes the state of a single circuit breaker in the response payload.
type BreakerStatus struct {
	State                string     `json:"state"`
	ConsecutiveFailures  int        `json:"consecutive_failures"`
	ConsecutiveSuccesses int        `json:"consecutive_successes"`
	OpenedAt             *time.Time `json:"opened_at,omitempty"`
}

// ShutdownStatus describes the graceful shutdown progress in the response payload.
type ShutdownStatus struct {
	Draining               bool `json:"draining"`
	InFlightRequests       int  `json:"in_flight_requests"`
	ShutdownTimeoutSeconds int  `json:"shutdown_timeout_seconds"`
}

// ReliabilityStatus is the response payload of the reliability status endpoint.
type ReliabilityStatus struct {
	UptimeSeconds    int64                    `json:"uptime_seconds"`
	CircuitBreakers  map[string]BreakerStatus `json:"circuit_breakers"`
	GracefulShutdown ShutdownStatus           `json:"graceful_shutdown"`
}

// Handler implements http.Handler and reports the current state of the resilience layer.
type Handler struct {
	breakers        *breaker.Registry
	tracker         *tracker.Tracker
	shutdownTimeout time.Duration
	startedAt       time.Time
	nowFn           func() time.Time
}

// Opts represents options for the Handler.
type Opts struct {
	// ShutdownTimeout is the drain grace period reported in the payload.
	// Non-positive value means tracker.DefaultGracePeriod.
	ShutdownTimeout time.Duration
}

// NewHandler creates a new Handler.
func NewHandler(breakers *breaker.Registry, t *tracker.Tracker) *Handler {
	return NewHandlerWithOpts(breakers, t, Opts{})
}

// NewHandlerWithOpts is a more configurable version of NewHandler.
func NewHandlerWithOpts(breakers *breaker.Registry, t *tracker.Tracker, opts Opts) *Handler {
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = tracker.DefaultGracePeriod
	}
	return &Handler{
		breakers:        breakers,
		tracker:         t,
		shutdownTimeout: shutdownTimeout,
		startedAt:       time.Now(),
		nowFn:           time.Now,
	}
}

// ServeHTTP serves the reliability status HTTP request.
func (h *Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, h.buildStatus(), appkitmw.GetLoggerFromContext(r.Context()))
}

func (h *Handler) buildStatus() ReliabilityStatus {
	breakers := make(map[string]BreakerStatus)
	for name, st := range h.breakers.Snapshot() {
		bs := BreakerStatus{
			State:                st.State.String(),
			ConsecutiveFailures:  st.ConsecutiveFailures,
			ConsecutiveSuccesses: st.ConsecutiveSuccesses,
		}
		if !st.OpenedAt.IsZero() {
			openedAt := st.OpenedAt
			bs.OpenedAt = &openedAt
		}
		breakers[name] = bs
	}

	trackerStatus := h.tracker.Snapshot()
	return ReliabilityStatus{
		UptimeSeconds:   int64(h.nowFn().Sub(h.startedAt).Seconds()),
		CircuitBreakers: breakers,
		GracefulShutdown: ShutdownStatus{
			Draining:               trackerStatus.Draining,
			InFlightRequests:       trackerStatus.InFlight,
			ShutdownTimeoutSeconds: int(h.shutdownTimeout.Seconds()),
		},
	}
}
