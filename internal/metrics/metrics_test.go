package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecorded(t *testing.T) {
	registry := prometheus.NewRegistry()
	active := 3
	m := MustNew(registry, func() int { return active })

	m.Conversion("success")
	m.Conversion("success")
	m.Conversion("validation")
	m.Download("ok")
	m.Swept(4)
	m.Swept(0)
	m.ObserveStage("normalize", 250*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.conversions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloads.WithLabelValues("ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.swept))

	families, err := registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
		if mf.GetName() == "file_changer_sessions_active" {
			assert.Equal(t, 3.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, names["file_changer_stage_duration_seconds"])
	assert.True(t, names["file_changer_sessions_active"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Conversion("success")
		m.Download("ok")
		m.Swept(1)
		m.ObserveStage("assemble", time.Second)
	})
}
