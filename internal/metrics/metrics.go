package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests  *prometheus.CounterVec
	apiLatency   *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	feedOps      *prometheus.CounterVec
	activeFeeds  prometheus.Gauge
}

// New registers all collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hubfeed",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Remote API calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hubfeed",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Remote API call latency, retries included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hubfeed",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		feedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hubfeed",
			Subsystem: "feed",
			Name:      "operations_total",
			Help:      "Comment feed operations by op and outcome (ok, noop, error, discarded).",
		}, []string{"op", "outcome"}),
		activeFeeds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hubfeed",
			Subsystem: "feed",
			Name:      "active",
			Help:      "Comment feeds currently held in memory.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiLatency,
		m.cacheLookups,
		m.feedOps,
		m.activeFeeds,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, outcome).Inc()
	m.apiLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheLookup(kind, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) FeedOp(op, outcome string) {
	if m == nil {
		return
	}
	m.feedOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) SetActiveFeeds(n int) {
	if m == nil {
		return
	}
	m.activeFeeds.Set(float64(n))
}
