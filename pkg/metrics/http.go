package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics records HTTP request outcomes per route.
type RequestMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	inflight prometheus.Gauge
}

// NewRequestMetrics registers the HTTP metrics on the provided registerer.
func NewRequestMetrics(reg prometheus.Registerer) *RequestMetrics {
	if reg == nil {
		return &RequestMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests served.",
	}, []string{"method", "route", "status"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})
	reg.MustRegister(duration, total, inflight)
	return &RequestMetrics{
		duration: duration,
		total:    total,
		inflight: inflight,
	}
}

// Observe records one completed request.
func (m *RequestMetrics) Observe(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	labels := []string{normalizeLabel(method), normalizeLabel(route), strconv.Itoa(status)}
	m.duration.WithLabelValues(labels...).Observe(elapsed.Seconds())
	m.total.WithLabelValues(labels...).Inc()
}

// IncInFlight marks a request as started.
func (m *RequestMetrics) IncInFlight() {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Inc()
}

// DecInFlight marks a request as finished.
func (m *RequestMetrics) DecInFlight() {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Dec()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
