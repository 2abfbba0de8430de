// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	SearchQueriesTotal    *prometheus.CounterVec
	SearchLatency         *prometheus.HistogramVec
	SearchResultsCount    prometheus.Histogram
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	DocsIndexedTotal      prometheus.Counter
	ShardDocCount         *prometheus.GaugeVec
	ActiveShards          prometheus.Gauge
	RewritesTotal         *prometheus.CounterVec
	RewriteTermsCollected prometheus.Histogram
	RewriteCacheHits      prometheus.Counter
	RewriteCacheMisses    prometheus.Counter
	RewriteSettingUpdates prometheus.Counter
}

// New creates all collectors and registers them on reg. Pass
// prometheus.DefaultRegisterer to expose them through Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, miss, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents indexed.",
			},
		),
		ShardDocCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shard_document_count",
				Help: "Number of documents per shard.",
			},
			[]string{"shard_id"},
		),
		ActiveShards: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_shards",
				Help: "Number of active index shards.",
			},
		),
		RewritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewrites_total",
				Help: "Multi-term rewrites by chosen strategy and cutoff reason.",
			},
			[]string{"strategy", "reason"},
		),
		RewriteTermsCollected: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rewrite_terms_collected",
				Help:    "Terms collected per multi-term rewrite.",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 350, 1024},
			},
		),
		RewriteCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewrite_cache_hits_total",
				Help: "Rewrites served from the rewrite cache.",
			},
		),
		RewriteCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewrite_cache_misses_total",
				Help: "Rewrites that had to collect terms.",
			},
		),
		RewriteSettingUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewrite_setting_updates_total",
				Help: "Successful changes of the active rewrite strategy.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.ShardDocCount,
		m.ActiveShards,
		m.RewritesTotal,
		m.RewriteTermsCollected,
		m.RewriteCacheHits,
		m.RewriteCacheMisses,
		m.RewriteSettingUpdates,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for the default
// registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves the metrics of a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
