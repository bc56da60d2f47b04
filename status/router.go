/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package status

import (
	"net/http"

	"github.com/acronis/go-appkit/httpserver"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-resilience/breaker"
	"github.com/acronis/go-resilience/tracker"
)

// HealthCheck builds a health-check function which reports one component per known circuit breaker.
// A component is unhealthy while its breaker is open.
func HealthCheck(breakers *breaker.Registry) httpserver.HealthCheck {
	return func() (httpserver.HealthCheckResult, error) {
		result := httpserver.HealthCheckResult{}
		for name, st := range breakers.Snapshot() {
			if st.State == breaker.StateOpen {
				result[name] = httpserver.HealthCheckStatusFail
			} else {
				result[name] = httpserver.HealthCheckStatusOK
			}
		}
		return result, nil
	}
}

// NewRouter builds a router with the operational endpoints of the resilience layer:
//
//	GET /healthz     - health-check, one component per circuit breaker
//	GET /readyz      - readiness, 503 while the service is draining
//	GET /metrics     - Prometheus metrics
//	GET /reliability - detailed state of breakers and the shutdown progress
func NewRouter(breakers *breaker.Registry, t *tracker.Tracker, opts Opts) chi.Router {
	router := chi.NewRouter()
	router.Method(http.MethodGet, "/healthz", httpserver.NewHealthCheckHandler(HealthCheck(breakers)))
	router.Get("/readyz", func(rw http.ResponseWriter, r *http.Request) {
		if t.Draining() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Method(http.MethodGet, "/reliability", NewHandlerWithOpts(breakers, t, opts))
	return router
}
