package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer instance for the trading-mcp application.
var tracer = otel.Tracer("trading-mcp")

// GetTracer returns the global tracer for creating spans.
// This tracer can be used throughout the application to create new spans.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}

// StartToolSpan starts a span for an MCP tool call. The span name follows
// the "tool <name>" convention so traces group by tool.
func StartToolSpan(ctx context.Context, tool string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "tool "+tool,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("mcp.tool", tool)),
	)
}

// EndToolSpan finalizes a tool span with its outcome. A non-empty errorCode
// marks the span as failed and records the envelope code; success spans
// stay unset so backends can distinguish "ok" from "not recorded".
func EndToolSpan(span trace.Span, errorCode string) {
	if errorCode != "" {
		span.SetAttributes(attribute.String("mcp.error_code", errorCode))
		span.SetStatus(codes.Error, errorCode)
	}
	span.End()
}
