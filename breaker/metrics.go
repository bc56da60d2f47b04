/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package breaker

import "github.com/prometheus/client_golang/prometheus"

const metricsLabelDependency = "dependency"

// MetricsCollector represents a collector of the circuit breaker metrics.
type MetricsCollector interface {
	// StateChanged is called on every breaker state transition.
	StateChanged(dependency string, from, to State)

	// CallRejected is called when a call is rejected because the breaker is open
	// or a trial call is already in flight.
	CallRejected(dependency string)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for circuit breakers.
type PrometheusMetrics struct {
	BreakerState     *prometheus.GaugeVec
	TransitionsTotal *prometheus.CounterVec
	CallRejectsTotal *prometheus.CounterVec
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "circuit_breaker_state",
			Help:        "Current state of the circuit breaker (0 - closed, 1 - open, 2 - half-open).",
			ConstLabels: opts.ConstLabels,
		}, []string{metricsLabelDependency})
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "circuit_breaker_transitions_total",
			Help:        "Number of circuit breaker state transitions.",
			ConstLabels: opts.ConstLabels,
		}, []string{metricsLabelDependency, "from_state", "to_state"})
	callRejectsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "circuit_breaker_call_rejects_total",
			Help:        "Number of calls rejected by the circuit breaker without attempting the call.",
			ConstLabels: opts.ConstLabels,
		}, []string{metricsLabelDependency})
	return &PrometheusMetrics{
		BreakerState:     breakerState,
		TransitionsTotal: transitionsTotal,
		CallRejectsTotal: callRejectsTotal,
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.BreakerState,
		pm.TransitionsTotal,
		pm.CallRejectsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.BreakerState)
	prometheus.Unregister(pm.TransitionsTotal)
	prometheus.Unregister(pm.CallRejectsTotal)
}

// StateChanged implements MetricsCollector interface.
func (pm *PrometheusMetrics) StateChanged(dependency string, from, to State) {
	pm.BreakerState.WithLabelValues(dependency).Set(float64(to))
	pm.TransitionsTotal.WithLabelValues(dependency, from.String(), to.String()).Inc()
}

// CallRejected implements MetricsCollector interface.
func (pm *PrometheusMetrics) CallRejected(dependency string) {
	pm.CallRejectsTotal.WithLabelValues(dependency).Inc()
}
