package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RegisterWithoutConflicts(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()

	assert.NotPanics(t, func() { reg.MustRegister(m.collectors()...) })
}

func TestMetrics_Labels(t *testing.T) {
	m := NewMetricsForTesting()

	m.HelpRequests.WithLabelValues("High").Inc()
	m.HelpRequests.WithLabelValues("High").Inc()
	m.ChangeEvents.WithLabelValues("INSERT").Inc()

	assert.InDelta(t, 2, testutil.ToFloat64(m.HelpRequests.WithLabelValues("High")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ChangeEvents.WithLabelValues("INSERT")), 0)
}
