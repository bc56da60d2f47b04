/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector is an interface for collecting metrics about the tracked in-flight requests.
type MetricsCollector interface {
	// InFlightChanged is called with the new in-flight count after each registration and release.
	InFlightChanged(count int)

	// RegistrationRejected is called when a registration is rejected because the service is draining.
	RegistrationRejected()

	// DrainFinished is called when a drain finishes with the number of abandoned requests.
	DrainFinished(abandoned int)
}

// PrometheusMetrics represents collector of metrics about the tracked in-flight requests.
type PrometheusMetrics struct {
	InFlightRequests prometheus.Gauge
	ShutdownRejects  prometheus.Counter
	AbandonedTotal   prometheus.Counter
	DrainsTotal      prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "in_flight_http_requests",
		Help: "Current number of admitted requests that have not completed yet.",
	})
	rejects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shutdown_rejects_total",
		Help: "Total number of requests rejected because the service was draining.",
	})
	abandoned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drain_abandoned_requests_total",
		Help: "Total number of in-flight requests abandoned because the drain grace period expired.",
	})
	drains := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drains_total",
		Help: "Total number of finished drains.",
	})
	return &PrometheusMetrics{
		InFlightRequests: inFlight,
		ShutdownRejects:  rejects,
		AbandonedTotal:   abandoned,
		DrainsTotal:      drains,
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.InFlightRequests,
		pm.ShutdownRejects,
		pm.AbandonedTotal,
		pm.DrainsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.InFlightRequests)
	prometheus.Unregister(pm.ShutdownRejects)
	prometheus.Unregister(pm.AbandonedTotal)
	prometheus.Unregister(pm.DrainsTotal)
}

// InFlightChanged updates the in-flight requests gauge.
func (pm *PrometheusMetrics) InFlightChanged(count int) {
	pm.InFlightRequests.Set(float64(count))
}

// RegistrationRejected increments the counter of rejected registrations.
func (pm *PrometheusMetrics) RegistrationRejected() {
	pm.ShutdownRejects.Inc()
}

// DrainFinished increments the drain counters.
func (pm *PrometheusMetrics) DrainFinished(abandoned int) {
	pm.DrainsTotal.Inc()
	if abandoned > 0 {
		pm.AbandonedTotal.Add(float64(abandoned))
	}
}
