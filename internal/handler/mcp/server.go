// Package mcp is the tool surface of the server. It registers the trading
// tools, shapes every response into the success/error envelope, and wraps
// each call with request-scoped telemetry.
package mcp

import (
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"trading-mcp/internal/observability/slo"
	"trading-mcp/internal/pipeline"
	"trading-mcp/internal/usecase/market"
	"trading-mcp/internal/usecase/news"
)

// serverName is the implementation name announced during the MCP handshake.
const serverName = "trading-mcp"

// Deps bundles what the tool handlers need. Pipelines feeds the
// get_pipeline_stats tool and is ordered as registered in cmd/server.
type Deps struct {
	Market    market.Service
	News      news.Service
	Pipelines []*pipeline.Pipeline
	Logger    *slog.Logger
	Recorder  *slo.Recorder
}

// NewServer builds the MCP server and registers the tool surface on it.
// The caller connects it to a transport (stdio or streamable HTTP).
func NewServer(version string, deps Deps) *mcpsdk.Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Recorder == nil {
		deps.Recorder = slo.NewRecorder(0)
	}

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    serverName,
		Version: version,
	}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name: "get_stock_chart_data",
		Description: "Fetch OHLCV candles for NSE-listed stocks and indices over a date range. " +
			"Prices are in INR and timestamps in Asia/Kolkata. " +
			"Use plain NSE symbols (RELIANCE, TCS) or index codes (^NSEI).",
	}, withTelemetry(deps, "get_stock_chart_data", deps.handleChart))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name: "get_technical_indicators",
		Description: "Calculate a technical indicator (RSI, SMA, EMA, MACD, BBANDS, ATR) over an " +
			"NSE symbol's candle history. Warm-up points are trimmed, so every returned value is fully formed.",
	}, withTelemetry(deps, "get_technical_indicators", deps.handleIndicator))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name: "get_market_news",
		Description: "Fetch recent Indian market news, newest first. query_type 'company' returns " +
			"articles about one symbol, 'market' returns market-wide headlines. " +
			"Set include_content to fetch full article text.",
	}, withTelemetry(deps, "get_market_news", deps.handleNews))

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name: "get_pipeline_stats",
		Description: "Report cache and circuit breaker statistics for each fetch pipeline, plus " +
			"rolling tool-call availability and latency. Useful for diagnosing stale data or an unavailable upstream.",
	}, withTelemetry(deps, "get_pipeline_stats", deps.handleStats))

	return server
}
