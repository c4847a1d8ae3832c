package metrics

import (
	"strconv"
	"time"
)

// RecordToolCall records the outcome of an MCP tool invocation.
// Status should be either "success" or "error".
func RecordToolCall(tool string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit for the named pipeline.
func RecordCacheHit(pipeline string) {
	CacheHitsTotal.WithLabelValues(pipeline).Inc()
}

// RecordCacheMiss records a cache miss for the named pipeline.
func RecordCacheMiss(pipeline string) {
	CacheMissesTotal.WithLabelValues(pipeline).Inc()
}

// UpdateCacheSize updates the entry-count gauge for the named pipeline cache.
func UpdateCacheSize(pipeline string, size int) {
	CacheSize.WithLabelValues(pipeline).Set(float64(size))
}

// RecordBreakerRejection records a call rejected by an open circuit breaker.
func RecordBreakerRejection(pipeline string) {
	BreakerRejectionsTotal.WithLabelValues(pipeline).Inc()
}

// UpdateBreakerState updates the state gauge for the named pipeline's breaker.
// State follows the convention 0=closed, 1=half-open, 2=open.
func UpdateBreakerState(pipeline string, state int) {
	BreakerState.WithLabelValues(pipeline).Set(float64(state))
}

// RecordUpstreamRequest records an outbound request to a data provider.
// A statusCode of zero indicates a transport-level failure before any
// HTTP response was received.
func RecordUpstreamRequest(upstream string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	UpstreamRequestsTotal.WithLabelValues(upstream, status).Inc()
	UpstreamRequestDuration.WithLabelValues(upstream).Observe(duration.Seconds())
}

// RecordFeedFetch records metrics for a news feed fetch operation.
func RecordFeedFetch(feed string, duration time.Duration, items int) {
	FeedFetchDuration.WithLabelValues(feed).Observe(duration.Seconds())
	if items > 0 {
		FeedItemsTotal.WithLabelValues(feed).Add(float64(items))
	}
}

// RecordFeedFetchError records an error during feed fetching.
func RecordFeedFetchError(feed, errorType string) {
	FeedFetchErrors.WithLabelValues(feed, errorType).Inc()
}

// RecordContentFetchSuccess records a successful article content fetch.
// This tracks both the duration and size of fetched content.
//
// Example:
//
//	start := time.Now()
//	content, err := fetcher.FetchContent(ctx, url)
//	if err == nil {
//	    RecordContentFetchSuccess(time.Since(start), len(content))
//	}
func RecordContentFetchSuccess(duration time.Duration, size int) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
	ContentFetchSize.Observe(float64(size))
}

// RecordContentFetchFailed records a failed article content fetch.
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a skipped article content fetch.
// This occurs when the feed item already carries enough content and
// fetching the source page is unnecessary.
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordPrewarmRun records the outcome of a full watchlist prewarm run.
func RecordPrewarmRun(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	PrewarmRunsTotal.WithLabelValues(status).Inc()
	PrewarmDuration.Observe(duration.Seconds())
}

// RecordPrewarmSymbol records the outcome of refreshing a single
// watchlist symbol during a prewarm run.
func RecordPrewarmSymbol(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	PrewarmSymbolsTotal.WithLabelValues(status).Inc()
}
