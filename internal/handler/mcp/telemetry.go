package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"trading-mcp/internal/handler/http/requestid"
	"trading-mcp/internal/observability/metrics"
	"trading-mcp/internal/observability/tracing"
)

// toolFunc is the shape of a domain tool handler: payload and metadata on
// success, a domain error otherwise. Envelope shaping and telemetry live
// in the wrapper, so handlers stay focused on the call itself.
type toolFunc[In any] func(ctx context.Context, in In) (data, metadata any, err error)

// withTelemetry adapts a toolFunc to the SDK handler shape and adds the
// per-call plumbing: a request ID, start/finish logs, Prometheus metrics,
// an OTel span, and the availability recorder. Domain errors become
// in-band error envelopes rather than protocol errors; a handler panic is
// contained the same way. The full error chain goes to the log, the
// envelope carries the sanitized message.
func withTelemetry[In any](deps Deps, tool string, fn toolFunc[In]) func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, in In) (*mcpsdk.CallToolResult, any, error) {
		reqID := requestid.New()
		ctx = requestid.WithRequestID(ctx, reqID)
		logger := deps.Logger.With(
			slog.String("request_id", reqID),
			slog.String("tool", tool),
		)

		ctx, span := tracing.StartToolSpan(ctx, tool)
		start := time.Now()
		logger.Info("Tool call started")

		var (
			data, meta any
			err        error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Tool handler panic",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())))
					err = fmt.Errorf("tool %s panicked: %v", tool, r)
				}
			}()
			data, meta, err = fn(ctx, in)
		}()

		duration := time.Since(start)

		if err != nil {
			code := MapErrorCode(err)
			metrics.RecordToolCall(tool, false, duration)
			deps.Recorder.Record(duration, isServerFailure(code))
			tracing.EndToolSpan(span, code)
			logger.Warn("Tool call failed",
				slog.String("error_code", code),
				slog.Int64("duration_ms", duration.Milliseconds()),
				slog.String("error", err.Error()))
			return errorResult(err), nil, nil
		}

		metrics.RecordToolCall(tool, true, duration)
		deps.Recorder.Record(duration, false)
		tracing.EndToolSpan(span, "")
		logger.Info("Tool call finished",
			slog.Int64("duration_ms", duration.Milliseconds()))
		return successResult(data, meta), nil, nil
	}
}
