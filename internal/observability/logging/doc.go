// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats, always on stderr
//   - Request ID propagation
//   - Context-aware logging
//   - Configurable log levels via LOG_LEVEL
//
// Example usage:
//
//	import "trading-mcp/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("server started", slog.String("transport", "stdio"))
//	}
//
//	func handleToolCall(ctx context.Context) {
//	    logger := logging.WithRequestID(ctx, slog.Default())
//	    logger.Info("processing tool call")
//	}
package logging
