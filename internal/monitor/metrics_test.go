package monitor

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCallMetrics(reg)

	m.Observe("dlocal", "authorize", OutcomeSuccess, 120*time.Millisecond)
	m.Observe("dlocal", "authorize", OutcomeSuccess, 80*time.Millisecond)
	m.Observe("dlocal", "capture", OutcomeGatewayError, 40*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.calls.WithLabelValues("dlocal", "authorize", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.calls.WithLabelValues("dlocal", "capture", OutcomeGatewayError)))
}

func TestMetricsRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCallMetrics(reg)
	assert.Panics(t, func() { NewCallMetrics(reg) })
}
