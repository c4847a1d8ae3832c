// Package observability provides production-grade observability infrastructure
// including structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// This package centralizes observability concerns to enable:
//   - Tool-call tracing across transports
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring
//   - SLO tracking for tool-call latency and availability
//
// Subpackages:
//   - logging: Structured logging utilities with slog (stderr only)
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry tracing integration
//   - slo: Service level objective targets and rolling-window recorder
//
// Example usage:
//
//	import (
//	    "trading-mcp/internal/observability/logging"
//	    "trading-mcp/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("server started")
//
//	    metrics.RecordToolCall("get_stock_chart_data", true, 120*time.Millisecond)
//	}
package observability
