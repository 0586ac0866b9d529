// Package monitor exposes prometheus metrics for connector calls.
package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes recorded per connector/flow pair.
const (
	OutcomeSuccess        = "success"
	OutcomeGatewayError   = "gateway_error"
	OutcomeBuildError     = "build_error"
	OutcomeTransportError = "transport_error"
	OutcomeHandlingError  = "handling_error"
)

// CallMetrics records connector call counts and latencies.
type CallMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewCallMetrics creates and registers the connector call metrics.
func NewCallMetrics(reg prometheus.Registerer) *CallMetrics {
	m := &CallMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_calls_total",
			Help: "Connector calls by connector, flow, and outcome.",
		}, []string{"connector", "flow", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "connector_call_duration_seconds",
			Help:    "Connector call round trip latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"connector", "flow"}),
	}
	reg.MustRegister(m.calls, m.latency)
	return m
}

// Observe records one finished connector call.
func (m *CallMetrics) Observe(connectorName, flow, outcome string, elapsed time.Duration) {
	m.calls.WithLabelValues(connectorName, flow, outcome).Inc()
	m.latency.WithLabelValues(connectorName, flow).Observe(elapsed.Seconds())
}
