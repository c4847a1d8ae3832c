// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Tool metrics track MCP tool call patterns and performance
var (
	// ToolCallsTotal counts tool invocations by tool name and outcome
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)

	// ToolCallDuration measures end-to-end tool call duration
	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcp_tool_duration_seconds",
			Help:    "MCP tool call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"tool"},
	)
)

// Pipeline metrics track cache and circuit breaker behavior per fetch pipeline
var (
	// CacheHitsTotal counts cache hits by pipeline
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"pipeline"},
	)

	// CacheMissesTotal counts cache misses by pipeline
	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"pipeline"},
	)

	// CacheSize tracks the number of entries currently held per pipeline cache
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_cache_size",
			Help: "Number of entries in the pipeline cache",
		},
		[]string{"pipeline"},
	)

	// BreakerState reports the circuit breaker state per pipeline
	// (0=closed, 1=half-open, 2=open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"pipeline"},
	)

	// BreakerRejectionsTotal counts calls rejected by an open circuit breaker
	BreakerRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_breaker_rejections_total",
			Help: "Total number of calls rejected by an open circuit breaker",
		},
		[]string{"pipeline"},
	)
)

// Upstream metrics track outbound calls to market data and news providers
var (
	// UpstreamRequestsTotal counts upstream HTTP requests by provider and status
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream provider requests",
		},
		[]string{"upstream", "status"},
	)

	// UpstreamRequestDuration measures upstream request duration by provider
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream provider request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"upstream"},
	)

	// FeedFetchDuration measures time to fetch and parse a news feed
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_fetch_duration_seconds",
			Help:    "Time taken to fetch and parse a news feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"feed"},
	)

	// FeedFetchErrors counts errors during feed fetching
	FeedFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetch_errors_total",
			Help: "Total number of feed fetch errors",
		},
		[]string{"feed", "error_type"},
	)

	// FeedItemsTotal counts items parsed from each feed
	FeedItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_items_total",
			Help: "Total number of items parsed from news feeds",
		},
		[]string{"feed"},
	)

	// ContentFetchAttemptsTotal counts article content fetch attempts by result
	ContentFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_attempts_total",
			Help: "Total number of article content fetch attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// ContentFetchDuration measures time to fetch article content
	ContentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Time taken to fetch article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// ContentFetchSize measures fetched content size in bytes
	ContentFetchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "content_fetch_size_bytes",
			Help: "Fetched article content size in bytes",
			Buckets: []float64{
				100, 200, 400, 800, 1600, 3200, 6400, 12800,
				25600, 51200, 102400, 204800, 409600, 819200,
				1638400, 3276800, 6553600, 10485760, // up to 10MB
			},
		},
	)
)

// Prewarm metrics track the scheduled watchlist refresh job
var (
	// PrewarmRunsTotal counts prewarm job runs by outcome
	PrewarmRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prewarm_runs_total",
			Help: "Total number of watchlist prewarm runs",
		},
		[]string{"status"},
	)

	// PrewarmDuration measures the duration of a full prewarm run
	PrewarmDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prewarm_duration_seconds",
			Help:    "Time taken to prewarm the watchlist",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// PrewarmSymbolsTotal counts individual symbol refreshes by outcome
	PrewarmSymbolsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prewarm_symbols_total",
			Help: "Total number of symbols refreshed by the prewarm job",
		},
		[]string{"status"},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
