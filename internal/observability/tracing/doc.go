// Package tracing provides OpenTelemetry tracing integration.
//
// Two span sources exist: the HTTP middleware traces transport requests,
// and StartToolSpan traces individual MCP tool calls regardless of
// transport. Trace context propagates via W3C Trace Context headers on
// the HTTP transport.
//
// The package uses the global otel tracer provider; without an SDK
// installed spans are no-ops, so tracing can stay wired in production
// and activate when an exporter is configured.
//
// Example usage:
//
//	import "trading-mcp/internal/observability/tracing"
//
//	func handleToolCall(ctx context.Context) {
//	    ctx, span := tracing.StartToolSpan(ctx, "get_stock_chart_data")
//	    defer tracing.EndToolSpan(span, "")
//	    // ... run the tool ...
//	}
package tracing
