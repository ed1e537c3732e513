// Package metrics exposes Prometheus instrumentation for scan runs, the
// provider chain and the cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockrank_scans_total",
			Help: "Total number of scan runs by terminal state",
		},
		[]string{"state"},
	)

	scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockrank_scan_duration_seconds",
			Help:    "End-to-end duration of scan runs in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	fetchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockrank_fetch_failures_total",
			Help: "Total number of symbols dropped after fetch failure",
		},
	)

	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockrank_provider_calls_total",
			Help: "Total number of provider calls by provider, operation and status",
		},
		[]string{"provider", "op", "status"},
	)

	cacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockrank_cache_hits_total",
			Help: "Total number of cache hits by TTL class",
		},
		[]string{"class"},
	)

	cacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockrank_cache_misses_total",
			Help: "Total number of cache misses by TTL class",
		},
		[]string{"class"},
	)
)

func init() {
	prometheus.MustRegister(
		scansTotal,
		scanDuration,
		fetchFailuresTotal,
		providerCallsTotal,
		cacheHitsTotal,
		cacheMissesTotal,
	)
}

// ScanCompleted records one finished run.
func ScanCompleted(state string, duration time.Duration) {
	scansTotal.WithLabelValues(state).Inc()
	scanDuration.Observe(duration.Seconds())
}

// FetchFailure records one symbol dropped during batched fetch.
func FetchFailure() {
	fetchFailuresTotal.Inc()
}

// ProviderCall records one upstream call outcome.
func ProviderCall(provider, op, status string) {
	providerCallsTotal.WithLabelValues(provider, op, status).Inc()
}

// CacheHit records a cache hit for one TTL class.
func CacheHit(class string) {
	cacheHitsTotal.WithLabelValues(class).Inc()
}

// CacheMiss records a cache miss for one TTL class.
func CacheMiss(class string) {
	cacheMissesTotal.WithLabelValues(class).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
