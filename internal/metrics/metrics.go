package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "file_changer"

// Metrics groups the collectors reported by the image-to-pdf pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	conversions   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	downloads     *prometheus.CounterVec
	swept         prometheus.Counter
}

// MustNew registers the collectors on reg and panics on a registration error.
// activeSessions backs the sessions_active gauge.
func MustNew(reg prometheus.Registerer, activeSessions func() int) *Metrics {
	m := &Metrics{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Image-to-PDF requests by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Session redemptions by outcome.",
		}, []string{"outcome"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Sessions evicted by the background sweeper.",
		}),
	}

	collectors := []prometheus.Collector{m.conversions, m.stageDuration, m.downloads, m.swept}
	if activeSessions != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(activeSessions()) }))
	}
	reg.MustRegister(collectors...)
	return m
}

func (m *Metrics) Conversion(outcome string) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) Download(outcome string) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Swept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}
