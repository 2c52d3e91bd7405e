// Package metrics defines the Prometheus metric collectors used across the
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     prometheus.Counter
	DocsRejectedTotal    *prometheus.CounterVec
	KeywordsTotal        prometheus.Gauge
	MergeDuration        prometheus.Histogram
	InsertProbeDepth     prometheus.Histogram
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. A nil reg uses the
// default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
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
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of documents returned per search query.",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents merged into the keyword index.",
			},
		),
		DocsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_rejected_total",
				Help: "Documents refused by the indexer, by reason.",
			},
			[]string{"reason"},
		),
		KeywordsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_keywords",
				Help: "Number of distinct keywords in the index.",
			},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_merge_duration_seconds",
				Help:    "Time to merge one document into the index.",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
		InsertProbeDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_insert_probe_depth",
				Help:    "Number of midpoints probed per occurrence insertion.",
				Buckets: []float64{0, 1, 2, 4, 8, 12, 16, 20, 24},
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
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
		m.DocsRejectedTotal,
		m.KeywordsTotal,
		m.MergeDuration,
		m.InsertProbeDepth,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the scrape handler for g. A nil g serves the default
// registry.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
