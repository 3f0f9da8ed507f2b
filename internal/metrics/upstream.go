package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Catalog API and cache Prometheus metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawmatch",
			Name:      "upstream_requests_total",
			Help:      "Total number of catalog API requests",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pawmatch",
			Name:      "upstream_request_duration_seconds",
			Help:      "Catalog API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawmatch",
			Name:      "upstream_errors_total",
			Help:      "Total catalog API errors by kind",
		},
		[]string{"endpoint", "error_type"}, // "transport" / "api" / "auth_expired" / "decode"
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pawmatch",
			Name:      "cache_total",
			Help:      "Shared cache hits and misses",
		},
		[]string{"cache", "result"}, // cache: "geo" / "breeds"; result: "hit" / "miss"
	)

	StaleResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pawmatch",
			Name:      "search_stale_results_total",
			Help:      "Search results discarded because a newer query superseded them",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pawmatch",
			Name:      "active_sessions",
			Help:      "Number of live search sessions",
		},
	)
)

var registerOnce sync.Once

// RegisterUpstreamMetrics registers catalog and cache metrics. Safe to call more than once.
func RegisterUpstreamMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(UpstreamRequestsTotal)
		prometheus.MustRegister(UpstreamRequestDuration)
		prometheus.MustRegister(UpstreamErrorsTotal)
		prometheus.MustRegister(CacheTotal)
		prometheus.MustRegister(StaleResultsTotal)
		prometheus.MustRegister(ActiveSessions)
	})
}
