package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"trading-mcp/internal/config"
	hhttp "trading-mcp/internal/handler/http"
	"trading-mcp/internal/pipeline"
)

// startMetricsServer starts the metrics/health sidecar on cfg.MetricsAddr.
// It runs in a separate goroutine and supports graceful shutdown via context.
//
// The sidecar exposes:
//   - GET /metrics - Prometheus metrics endpoint
//   - GET /health - Liveness probe (200 as long as the process serves)
//   - GET /health/pipelines - Readiness probe with per-pipeline cache and
//     circuit breaker state; answers 503 while any breaker is open
//
// The sidecar binds its own listener in both transport modes. On stdio the
// protocol owns stdout, so this is the only HTTP surface the process has.
func startMetricsServer(ctx context.Context, logger *slog.Logger, cfg config.ServerConfig, version string, pipelines []*pipeline.Pipeline) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", hhttp.MetricsHandler())
	mux.HandleFunc("/health", hhttp.LiveHandler(version))
	mux.HandleFunc("/health/pipelines", hhttp.PipelinesHealthHandler(version, pipelines))

	server := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.String("addr", cfg.MetricsAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("metrics server shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
		} else {
			logger.Info("metrics server stopped")
		}
	}()

	return server
}
