package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/robfig/cron/v3"

	"trading-mcp/internal/config"
	hhttp "trading-mcp/internal/handler/http"
	"trading-mcp/internal/handler/http/requestid"
	mcphandler "trading-mcp/internal/handler/mcp"
	"trading-mcp/internal/infra/fetcher"
	"trading-mcp/internal/infra/newsfeed"
	"trading-mcp/internal/infra/yahoo"
	"trading-mcp/internal/observability/logging"
	"trading-mcp/internal/observability/slo"
	"trading-mcp/internal/observability/tracing"
	pkgconfig "trading-mcp/internal/pkg/config"
	"trading-mcp/internal/pipeline"
	"trading-mcp/internal/resilience/circuitbreaker"
	"trading-mcp/internal/resilience/retry"
	"trading-mcp/internal/usecase/market"
	"trading-mcp/internal/usecase/news"
	"trading-mcp/internal/usecase/prewarm"
)

// prewarmRunTimeout bounds one scheduled watchlist refresh end to end.
const prewarmRunTimeout = 10 * time.Minute

func main() {
	logger := initLogger()

	configMetrics := pkgconfig.NewConfigMetrics("server")
	cfg := config.LoadFromEnv(logger, configMetrics)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	version := getVersion()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comp := setupComponents(logger, cfg)
	server := mcphandler.NewServer(version, comp.deps)

	startMetricsServer(ctx, logger, cfg, version, comp.pipelines)
	startPrewarmScheduler(ctx, logger, cfg.Prewarm, comp.prewarm)

	switch cfg.Transport {
	case config.TransportHTTP:
		runHTTP(ctx, logger, cfg, server, version)
	default:
		runStdio(ctx, logger, server, version)
	}
}

// initLogger initializes the structured logger. All output goes to stderr;
// on the stdio transport stdout belongs to the protocol stream.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// components holds the wired object graph shared by the transports, the
// sidecar, and the prewarm scheduler.
type components struct {
	deps      mcphandler.Deps
	pipelines []*pipeline.Pipeline
	prewarm   *prewarm.Service
}

// setupComponents builds the fetch pipelines, upstream clients, and services.
func setupComponents(logger *slog.Logger, cfg config.ServerConfig) *components {
	marketPipeline := pipeline.New(pipeline.Config{
		Name:          "market-data",
		CacheCapacity: cfg.Cache.Capacity,
		Breaker:       marketBreakerConfig(cfg.Resilience),
		Retry:         marketRetryConfig(cfg.Resilience),
		Coalesce:      true,
	}, pipeline.WithLogger(logger))

	newsPipeline := pipeline.New(pipeline.Config{
		Name:          "news-feed",
		CacheCapacity: cfg.Cache.Capacity,
		Breaker:       newsBreakerConfig(cfg.Resilience),
		Retry:         retry.NewsFeedConfig(),
		Coalesce:      true,
	}, pipeline.WithLogger(logger))

	chartClient := yahoo.NewClient(cfg.Yahoo)
	marketSvc := market.NewService(chartClient, marketPipeline, cfg.Cache)

	feeds := loadFeeds(logger, cfg)
	feedFetcher := newsfeed.NewFetcher(&http.Client{Timeout: cfg.News.FetchTimeout})
	contentFetcher, contentCfg := setupContentFetcher(logger)
	newsSvc := news.NewService(feeds, feedFetcher, contentFetcher, newsPipeline, cfg.Cache, cfg.News, contentCfg)

	pipelines := []*pipeline.Pipeline{marketPipeline, newsPipeline}

	return &components{
		deps: mcphandler.Deps{
			Market:    marketSvc,
			News:      newsSvc,
			Pipelines: pipelines,
			Logger:    logger,
			Recorder:  slo.NewRecorder(0),
		},
		pipelines: pipelines,
		prewarm:   prewarm.NewService(marketSvc, cfg.Prewarm),
	}
}

// marketBreakerConfig starts from the market-data preset and applies the
// operator's environment overrides.
func marketBreakerConfig(res config.ResilienceConfig) circuitbreaker.Config {
	bc := circuitbreaker.MarketDataConfig()
	if res.BreakerThreshold > 0 {
		bc.FailureThreshold = uint32(res.BreakerThreshold)
	}
	if res.BreakerRecovery > 0 {
		bc.RecoveryTimeout = res.BreakerRecovery
	}
	return bc
}

// newsBreakerConfig applies the threshold override but keeps the preset's
// longer recovery window; feeds come back on their own schedule, not the
// chart API's.
func newsBreakerConfig(res config.ResilienceConfig) circuitbreaker.Config {
	bc := circuitbreaker.NewsFeedConfig()
	if res.BreakerThreshold > 0 {
		bc.FailureThreshold = uint32(res.BreakerThreshold)
	}
	return bc
}

func marketRetryConfig(res config.ResilienceConfig) retry.Config {
	rc := retry.MarketDataConfig()
	if res.RetryMaxAttempts > 0 {
		rc.MaxAttempts = res.RetryMaxAttempts
	}
	if res.RetryInitialDelay > 0 {
		rc.InitialDelay = res.RetryInitialDelay
	}
	if res.RetryMultiplier > 0 {
		rc.Multiplier = res.RetryMultiplier
	}
	return rc
}

// loadFeeds loads the YAML feed catalog when configured, falling back to
// the built-in Indian market feeds on any problem.
func loadFeeds(logger *slog.Logger, cfg config.ServerConfig) *config.FeedsConfig {
	if cfg.News.FeedsFile == "" {
		return config.DefaultFeedsConfig()
	}
	feeds, err := config.LoadFeedsConfig(cfg.News.FeedsFile)
	if err != nil {
		logger.Warn("failed to load feed catalog, using defaults",
			slog.String("path", cfg.News.FeedsFile),
			slog.Any("error", err))
		return config.DefaultFeedsConfig()
	}
	logger.Info("feed catalog loaded",
		slog.String("path", cfg.News.FeedsFile),
		slog.Int("market_feeds", len(feeds.MarketFeeds())))
	return feeds
}

// setupContentFetcher loads the article enrichment configuration and builds
// the readability fetcher. Disabled enrichment returns a nil fetcher; the
// news service then serves feed summaries only.
func setupContentFetcher(logger *slog.Logger) (news.ContentFetcher, news.ContentFetchConfig) {
	contentMetrics := pkgconfig.NewConfigMetrics("content_fetch")
	cc := fetcher.LoadConfigFromEnv(logger, contentMetrics)

	limits := news.ContentFetchConfig{
		Parallelism: cc.Parallelism,
		Threshold:   cc.Threshold,
	}
	if !cc.Enabled {
		logger.Info("content fetching disabled")
		return nil, limits
	}
	logger.Info("content fetching enabled",
		slog.Int("threshold", cc.Threshold),
		slog.Int("parallelism", cc.Parallelism),
		slog.Duration("timeout", cc.Timeout))
	return fetcher.NewReadabilityFetcher(cc), limits
}

// startPrewarmScheduler starts the cron job that refreshes the chart cache
// for the configured watchlist. No-op when prewarm is disabled.
func startPrewarmScheduler(ctx context.Context, logger *slog.Logger, cfg config.PrewarmConfig, svc *prewarm.Service) {
	if !cfg.Enabled {
		logger.Info("prewarm scheduler disabled")
		return
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid prewarm timezone, using UTC",
			slog.String("timezone", cfg.Timezone),
			slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.Schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, prewarmRunTimeout)
		defer cancel()
		svc.WarmWatchlist(runCtx)
	})
	if err != nil {
		logger.Error("failed to schedule prewarm job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	logger.Info("prewarm scheduler started",
		slog.String("schedule", cfg.Schedule),
		slog.String("timezone", cfg.Timezone),
		slog.Int("watchlist_size", len(cfg.Watchlist)))

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
}

// runStdio serves MCP over stdin/stdout until the client disconnects or a
// shutdown signal arrives.
func runStdio(ctx context.Context, logger *slog.Logger, server *mcpsdk.Server, version string) {
	logger.Info("server starting",
		slog.String("transport", "stdio"),
		slog.String("version", version))

	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// runHTTP serves MCP over streamable HTTP behind the middleware chain and
// handles graceful shutdown.
func runHTTP(ctx context.Context, logger *slog.Logger, cfg config.ServerConfig, server *mcpsdk.Server, version string) {
	mcpHandler := mcpsdk.NewStreamableHTTPHandler(
		func(*http.Request) *mcpsdk.Server { return server }, nil)

	middlewares := []func(http.Handler) http.Handler{
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Recover(logger),
		hhttp.Logging(logger),
		hhttp.MetricsMiddleware,
		hhttp.LimitRequestBody(1 << 20), // 1MB limit
		hhttp.Timeout(cfg.RequestTimeout),
	}
	if cfg.JWTSecret != "" {
		middlewares = append(middlewares, hhttp.BearerAuth([]byte(cfg.JWTSecret)))
		logger.Info("bearer auth enabled")
	} else {
		logger.Warn("bearer auth disabled; set JWT_SECRET to require tokens")
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", hhttp.Chain(mcpHandler, middlewares...))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
	}

	go func() {
		logger.Info("server starting",
			slog.String("transport", "http"),
			slog.String("addr", cfg.HTTPAddr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
