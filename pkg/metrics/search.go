package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics records browse pipeline outcomes.
type SearchMetrics struct {
	duration *prometheus.HistogramVec
	results  *prometheus.HistogramVec
	empty    *prometheus.CounterVec
	stale    prometheus.Counter
}

// NewSearchMetrics registers the browse metrics on the provided registerer.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	if reg == nil {
		return &SearchMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "browse_duration_seconds",
		Help:    "Duration of browse pipeline executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"sort"})
	results := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "browse_result_count",
		Help:    "Number of listings returned per browse.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	}, []string{"sort"})
	empty := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "browse_empty_total",
		Help: "Browse executions that returned no listings, by dominant filter.",
	}, []string{"reason"})
	stale := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "browse_stale_dropped_total",
		Help: "Browse responses dropped because a newer request superseded them.",
	})
	reg.MustRegister(duration, results, empty, stale)
	return &SearchMetrics{
		duration: duration,
		results:  results,
		empty:    empty,
		stale:    stale,
	}
}

// ObserveBrowse records a completed browse execution.
func (m *SearchMetrics) ObserveBrowse(sort string, resultCount int, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	label := normalizeLabel(sort)
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
	m.results.WithLabelValues(label).Observe(float64(resultCount))
}

// IncEmpty increments the empty-result counter for the dominant filter reason.
func (m *SearchMetrics) IncEmpty(reason string) {
	if m == nil || m.empty == nil {
		return
	}
	m.empty.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncStaleDropped increments the superseded-response counter.
func (m *SearchMetrics) IncStaleDropped() {
	if m == nil || m.stale == nil {
		return
	}
	m.stale.Inc()
}
