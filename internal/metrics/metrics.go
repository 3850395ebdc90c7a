// Package metrics holds the Prometheus collectors shared across the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled HTTP requests by route and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longview_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"route", "code"},
	)

	// HTTPRequestDurationSeconds measures handler latency per route
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "longview_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// ReadTierTotal counts window reads by the tier that produced the result
	ReadTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longview_read_tier_total",
			Help: "Window reads by the strategy tier that served them",
		},
		[]string{"tier"},
	)

	// CellErrorsTotal counts cell conversions that degraded to an error marker
	CellErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "longview_cell_errors_total",
			Help: "Cell serializations replaced by an inline error marker",
		},
	)

	// VectorSummariesTotal counts vector summaries produced for row pages
	VectorSummariesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "longview_vector_summaries_total",
			Help: "Vector summary objects computed",
		},
	)

	// DecodeErrorsTotal counts fragment decode failures by format
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longview_decode_errors_total",
			Help: "Dataset fragment decode failures",
		},
		[]string{"format"},
	)

	// DatasetListTotal counts catalog listings
	DatasetListTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "longview_dataset_list_total",
			Help: "Catalog list operations",
		},
	)

	// RateLimitRequestsTotal counts limiter decisions
	RateLimitRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longview_rate_limit_requests_total",
			Help: "Requests seen by the rate limiter, by decision",
		},
		[]string{"decision"},
	)

	// CacheHitsTotal counts cache hits by cache name
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longview_cache_hits_total",
			Help: "Cache hits",
		},
		[]string{"cache"},
	)

	// CacheMissesTotal counts cache misses by cache name
	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longview_cache_misses_total",
			Help: "Cache misses",
		},
		[]string{"cache"},
	)

	// CacheEvictionsTotal counts cache evictions by cache name
	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longview_cache_evictions_total",
			Help: "Cache entries evicted by capacity",
		},
		[]string{"cache"},
	)

	// CacheSize tracks the current number of entries per cache
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "longview_cache_size",
			Help: "Current cache entry count",
		},
		[]string{"cache"},
	)

	// BufferPoolOperationsTotal counts render buffer pool traffic
	BufferPoolOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longview_buffer_pool_operations_total",
			Help: "Render buffer pool gets and puts",
		},
		[]string{"op"},
	)
)
