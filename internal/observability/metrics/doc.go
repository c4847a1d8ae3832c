// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - MCP tool call metrics (count, duration, outcome)
//   - Pipeline metrics (cache hits/misses, circuit breaker state)
//   - Upstream provider metrics (request duration, status codes)
//   - News feed and article content fetch metrics
//   - Watchlist prewarm job metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "trading-mcp/internal/observability/metrics"
//
//	func handleToolCall(tool string) {
//	    start := time.Now()
//	    // ... execute tool ...
//	    metrics.RecordToolCall(tool, true, time.Since(start))
//	}
package metrics
