/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector is an interface for collecting metrics about rejected HTTP requests.
type MetricsCollector interface {
	// RateLimitRejected is called when a request is denied by the rate limiting middleware.
	RateLimitRejected()
}

// PrometheusMetrics represents collector of metrics about rejected HTTP requests.
type PrometheusMetrics struct {
	RateLimitRejects prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		RateLimitRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limit_rejects_total",
			Help: "Total number of HTTP requests rejected by the rate limiting middleware.",
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.RateLimitRejects)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.RateLimitRejects)
}

// RateLimitRejected increments the counter of denied requests.
func (pm *PrometheusMetrics) RateLimitRejected() {
	pm.RateLimitRejects.Inc()
}
