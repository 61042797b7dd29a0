package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncUBO("ownership")
	m.IncUBO("ownership")
	m.IncUBO("fallback")
	m.AddFindings("cycle", 2)
	m.AddFindings("dead_end", 0)
	m.IncLinkMutation("create", nil)
	m.IncLinkMutation("delete", errors.New("not found"))
	m.ObserveAnalysis("resolve", time.Now())
	m.ObserveHTTP("GET", "/compliance/ubo", "200", time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m.UBODeterminations.WithLabelValues("ownership")))
	assert.Equal(t, 1.0, counterValue(t, m.UBODeterminations.WithLabelValues("fallback")))
	assert.Equal(t, 2.0, counterValue(t, m.StructuralFindings.WithLabelValues("cycle")))
	assert.Equal(t, 1.0, counterValue(t, m.LinkMutations.WithLabelValues("delete", "error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncUBO("control")
		m.AddFindings("cycle", 1)
		m.IncLinkMutation("create", nil)
		m.ObserveAnalysis("validate", time.Now())
		m.ObserveHTTP("GET", "/", "200", 0)
	})
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	return out.GetCounter().GetValue()
}
