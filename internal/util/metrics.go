package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_fetch_total",
		Help: "Total number of catalog fetches by kind and result",
	}, []string{"kind", "result"})

	CatalogFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_fetch_latency_seconds",
		Help:    "Latency of catalog fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	StaleResponsesDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_stale_responses_discarded_total",
		Help: "Total number of superseded catalog responses that were discarded",
	}, []string{"kind"})

	CatalogCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_requests_total",
		Help: "Total number of catalog cache lookups by kind and outcome",
	}, []string{"kind", "outcome"})

	CatalogCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_evictions_total",
		Help: "Total number of products evicted from the catalog cache",
	})

	AvailabilityRecomputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "availability_recompute_total",
		Help: "Total number of availability recomputations by trigger",
	}, []string{"trigger"})

	AvailabilityRecomputeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "availability_recompute_latency_seconds",
		Help:    "Latency of availability index build and flatten",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
	})

	VariationMatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "variation_match_total",
		Help: "Total number of attribute changes by match result",
	}, []string{"result"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "browse_sessions_active",
		Help: "Number of open browsing sessions",
	})

	TelemetryEventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_events_failed_total",
		Help: "Total number of telemetry events that could not be published",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
