// Package config holds the application-level configuration for the MCP
// server: transport selection, cache and resilience tuning, upstream client
// settings, and the news feed catalog. Operational knobs load from
// environment variables with fail-open fallbacks; security-sensitive values
// fail closed at validation time.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	pkgconfig "trading-mcp/internal/pkg/config"
)

// Transport modes accepted by MCP_TRANSPORT.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// minJWTSecretBytes is the minimum length for a configured JWT secret.
// HS256 secrets shorter than the hash output are brute-forceable.
const minJWTSecretBytes = 32

// ServerConfig is the top-level runtime configuration.
//
// Configuration sources:
//   - Environment variables (loaded via LoadFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Operational fields use the fail-open strategy: an invalid value falls back
// to its default with a logged warning and a fallback metric, so a typo in
// CACHE_CAPACITY never prevents startup. JWTSecret is the exception: a
// configured secret that is too short fails Validate, because starting with
// broken auth is worse than not starting.
type ServerConfig struct {
	// Transport selects how the MCP server is exposed.
	// Values: "stdio" (default) or "http".
	Transport string

	// HTTPAddr is the listen address for the streamable HTTP transport.
	// Only used when Transport is "http". Default: ":8080"
	HTTPAddr string

	// MetricsAddr is the listen address for the metrics/health sidecar.
	// Serves /metrics, /health and /health/pipelines in both transports.
	// Default: ":9091"
	MetricsAddr string

	// RequestTimeout bounds a single HTTP request end to end.
	// Default: 30s
	RequestTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown of the HTTP listeners.
	// Default: 10s
	ShutdownTimeout time.Duration

	// JWTSecret enables bearer auth on the HTTP transport when non-empty.
	// Must be at least 32 bytes when set. Env: JWT_SECRET
	JWTSecret string

	Cache      CacheConfig
	Resilience ResilienceConfig
	Yahoo      YahooConfig
	News       NewsConfig
	Prewarm    PrewarmConfig
}

// CacheConfig tunes the per-pipeline LRU caches and the TTL classes
// applied to cached entries.
type CacheConfig struct {
	// Capacity is the maximum entry count per pipeline cache.
	// Range: 1-10000. Default: 100
	Capacity int

	// IntradayTTL applies to chart data at intraday intervals (1m-1h),
	// which goes stale while the market is open. Default: 5m
	IntradayTTL time.Duration

	// HistoricalTTL applies to daily and coarser chart data. Default: 1h
	HistoricalTTL time.Duration

	// NewsTTL applies to news query results. Default: 15m
	NewsTTL time.Duration
}

// ResilienceConfig tunes the circuit breaker and retry behavior shared by
// the fetch pipelines.
type ResilienceConfig struct {
	// BreakerThreshold is the consecutive-failure count that opens a
	// circuit. Range: 1-100. Default: 5
	BreakerThreshold int

	// BreakerRecovery is how long an open circuit waits before allowing
	// a probe request. Default: 30s
	BreakerRecovery time.Duration

	// RetryMaxAttempts is the total attempt count per fetch, including
	// the first. Range: 1-10. Default: 3
	RetryMaxAttempts int

	// RetryInitialDelay is the delay before the first retry. Subsequent
	// delays grow by RetryMultiplier. Default: 1s
	RetryInitialDelay time.Duration

	// RetryMultiplier is the exponential backoff factor.
	// Range: 1.0-10.0. Default: 2.0
	RetryMultiplier float64
}

// YahooConfig tunes the Yahoo Finance chart API client.
type YahooConfig struct {
	// BaseURL is the API origin. Overridable for tests and proxies.
	// Default: "https://query1.finance.yahoo.com"
	BaseURL string

	// Timeout bounds a single chart request. Default: 10s
	Timeout time.Duration

	// UserAgent is sent on every request. Yahoo rejects empty agents.
	UserAgent string

	// RateLimit is the sustained request rate in requests per second.
	// Range: 0.1-50. Default: 5
	RateLimit float64

	// RateBurst is the token bucket burst size. Range: 1-100. Default: 10
	RateBurst int
}

// NewsConfig tunes news retrieval.
type NewsConfig struct {
	// FeedsFile is an optional path to a YAML feed catalog. When empty,
	// the built-in Indian market feeds are used.
	FeedsFile string

	// DefaultLimit is the article count when the caller omits limit.
	// Default: 10
	DefaultLimit int

	// MaxLimit caps the requested article count. Default: 50
	MaxLimit int

	// FetchTimeout bounds a single feed or article fetch. Default: 15s
	FetchTimeout time.Duration
}

// DefaultConfig returns a ServerConfig with production defaults: stdio
// transport, NSE-appropriate TTLs, and conservative upstream throttling.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Transport:       TransportStdio,
		HTTPAddr:        ":8080",
		MetricsAddr:     ":9091",
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Cache: CacheConfig{
			Capacity:      100,
			IntradayTTL:   5 * time.Minute,
			HistoricalTTL: 1 * time.Hour,
			NewsTTL:       15 * time.Minute,
		},
		Resilience: ResilienceConfig{
			BreakerThreshold:  5,
			BreakerRecovery:   30 * time.Second,
			RetryMaxAttempts:  3,
			RetryInitialDelay: 1 * time.Second,
			RetryMultiplier:   2.0,
		},
		Yahoo: YahooConfig{
			BaseURL:   "https://query1.finance.yahoo.com",
			Timeout:   10 * time.Second,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			RateLimit: 5,
			RateBurst: 10,
		},
		News: NewsConfig{
			DefaultLimit: 10,
			MaxLimit:     50,
			FetchTimeout: 15 * time.Second,
		},
		Prewarm: DefaultPrewarmConfig(),
	}
}

// Validate checks the configuration for values that must not be papered
// over with defaults. LoadFromEnv already guarantees operational fields,
// so this focuses on cross-field rules and security-sensitive settings.
func (c *ServerConfig) Validate() error {
	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return fmt.Errorf("transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Transport)
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < minJWTSecretBytes {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes (got %d)", minJWTSecretBytes, len(c.JWTSecret))
	}

	if c.News.DefaultLimit > c.News.MaxLimit {
		return fmt.Errorf("news default limit %d exceeds max limit %d", c.News.DefaultLimit, c.News.MaxLimit)
	}

	if c.Prewarm.Enabled && len(c.Prewarm.Watchlist) == 0 {
		return fmt.Errorf("prewarm is enabled but the watchlist is empty")
	}

	return nil
}

// LoadFromEnv loads the server configuration from environment variables
// with validation and automatic fallback to defaults on failure.
//
// Environment variables:
//   - MCP_TRANSPORT: "stdio" or "http" (default: "stdio")
//   - HTTP_ADDR: HTTP transport listen address (default: ":8080")
//   - METRICS_ADDR: metrics/health sidecar address (default: ":9091")
//   - REQUEST_TIMEOUT: per-request bound, e.g. "30s"
//   - SHUTDOWN_TIMEOUT: graceful shutdown bound, e.g. "10s"
//   - JWT_SECRET: HTTP bearer auth secret (empty disables auth)
//   - CACHE_CAPACITY: entries per pipeline cache (1-10000)
//   - CACHE_TTL_INTRADAY, CACHE_TTL_HISTORICAL, CACHE_TTL_NEWS: TTL classes
//   - BREAKER_FAILURE_THRESHOLD: consecutive failures to open (1-100)
//   - BREAKER_RECOVERY_TIMEOUT: open-state wait, e.g. "30s"
//   - RETRY_MAX_ATTEMPTS: attempts per fetch (1-10)
//   - RETRY_INITIAL_DELAY: first backoff delay, e.g. "1s"
//   - RETRY_MULTIPLIER: backoff factor (1.0-10.0)
//   - YAHOO_BASE_URL, YAHOO_TIMEOUT, YAHOO_USER_AGENT: chart API client
//   - YAHOO_RATE_LIMIT: requests per second (0.1-50)
//   - YAHOO_RATE_BURST: token bucket burst (1-100)
//   - NEWS_FEEDS_FILE: optional feeds.yaml path
//   - NEWS_DEFAULT_LIMIT, NEWS_MAX_LIMIT: article count bounds (1-50)
//   - NEWS_FETCH_TIMEOUT: per-feed fetch bound, e.g. "15s"
//   - PREWARM_ENABLED: cache prewarm scheduler toggle (default: false)
//   - PREWARM_SCHEDULE: five-field cron expression (default: "0 9 * * 1-5")
//   - PREWARM_TIMEZONE: IANA zone for the schedule (default: "Asia/Kolkata")
//   - PREWARM_WATCHLIST: comma-separated symbols to warm
//   - PREWARM_LOOKBACK_DAYS: warmed window in days (1-365)
//   - PREWARM_PARALLELISM: concurrent warm fetches (1-10)
//
// Every fallback increments the config metrics and logs a warning, so a
// misconfigured deployment is visible without failing startup. The returned
// config still needs Validate for the fail-closed checks.
func LoadFromEnv(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) ServerConfig {
	cfg := DefaultConfig()
	fallback := newFallbackTracker(logger, metrics)

	result := pkgconfig.LoadEnvWithFallback("MCP_TRANSPORT", cfg.Transport, validateTransport)
	cfg.Transport = result.Value.(string)
	fallback.observe("transport", result)

	cfg.HTTPAddr = pkgconfig.LoadEnvString("HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = pkgconfig.LoadEnvString("METRICS_ADDR", cfg.MetricsAddr)
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	result = pkgconfig.LoadEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, 1*time.Second, 5*time.Minute)
	})
	cfg.RequestTimeout = result.Value.(time.Duration)
	fallback.observe("request_timeout", result)

	result = pkgconfig.LoadEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, pkgconfig.ValidatePositiveDuration)
	cfg.ShutdownTimeout = result.Value.(time.Duration)
	fallback.observe("shutdown_timeout", result)

	result = pkgconfig.LoadEnvInt("CACHE_CAPACITY", cfg.Cache.Capacity, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 10000)
	})
	cfg.Cache.Capacity = result.Value.(int)
	fallback.observe("cache_capacity", result)

	result = pkgconfig.LoadEnvDuration("CACHE_TTL_INTRADAY", cfg.Cache.IntradayTTL, pkgconfig.ValidatePositiveDuration)
	cfg.Cache.IntradayTTL = result.Value.(time.Duration)
	fallback.observe("cache_ttl_intraday", result)

	result = pkgconfig.LoadEnvDuration("CACHE_TTL_HISTORICAL", cfg.Cache.HistoricalTTL, pkgconfig.ValidatePositiveDuration)
	cfg.Cache.HistoricalTTL = result.Value.(time.Duration)
	fallback.observe("cache_ttl_historical", result)

	result = pkgconfig.LoadEnvDuration("CACHE_TTL_NEWS", cfg.Cache.NewsTTL, pkgconfig.ValidatePositiveDuration)
	cfg.Cache.NewsTTL = result.Value.(time.Duration)
	fallback.observe("cache_ttl_news", result)

	result = pkgconfig.LoadEnvInt("BREAKER_FAILURE_THRESHOLD", cfg.Resilience.BreakerThreshold, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 100)
	})
	cfg.Resilience.BreakerThreshold = result.Value.(int)
	fallback.observe("breaker_failure_threshold", result)

	result = pkgconfig.LoadEnvDuration("BREAKER_RECOVERY_TIMEOUT", cfg.Resilience.BreakerRecovery, pkgconfig.ValidatePositiveDuration)
	cfg.Resilience.BreakerRecovery = result.Value.(time.Duration)
	fallback.observe("breaker_recovery_timeout", result)

	result = pkgconfig.LoadEnvInt("RETRY_MAX_ATTEMPTS", cfg.Resilience.RetryMaxAttempts, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 10)
	})
	cfg.Resilience.RetryMaxAttempts = result.Value.(int)
	fallback.observe("retry_max_attempts", result)

	result = pkgconfig.LoadEnvDuration("RETRY_INITIAL_DELAY", cfg.Resilience.RetryInitialDelay, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, 10*time.Millisecond, 1*time.Minute)
	})
	cfg.Resilience.RetryInitialDelay = result.Value.(time.Duration)
	fallback.observe("retry_initial_delay", result)

	result = pkgconfig.LoadEnvFloat64("RETRY_MULTIPLIER", cfg.Resilience.RetryMultiplier, func(v float64) error {
		if v < 1.0 || v > 10.0 {
			return fmt.Errorf("value %g is outside allowed range [1.0, 10.0]", v)
		}
		return nil
	})
	cfg.Resilience.RetryMultiplier = result.Value.(float64)
	fallback.observe("retry_multiplier", result)

	cfg.Yahoo.BaseURL = pkgconfig.LoadEnvString("YAHOO_BASE_URL", cfg.Yahoo.BaseURL)
	cfg.Yahoo.UserAgent = pkgconfig.LoadEnvString("YAHOO_USER_AGENT", cfg.Yahoo.UserAgent)

	result = pkgconfig.LoadEnvDuration("YAHOO_TIMEOUT", cfg.Yahoo.Timeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, 1*time.Second, 2*time.Minute)
	})
	cfg.Yahoo.Timeout = result.Value.(time.Duration)
	fallback.observe("yahoo_timeout", result)

	result = pkgconfig.LoadEnvFloat64("YAHOO_RATE_LIMIT", cfg.Yahoo.RateLimit, func(v float64) error {
		if v < 0.1 || v > 50 {
			return fmt.Errorf("value %g is outside allowed range [0.1, 50]", v)
		}
		return nil
	})
	cfg.Yahoo.RateLimit = result.Value.(float64)
	fallback.observe("yahoo_rate_limit", result)

	result = pkgconfig.LoadEnvInt("YAHOO_RATE_BURST", cfg.Yahoo.RateBurst, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 100)
	})
	cfg.Yahoo.RateBurst = result.Value.(int)
	fallback.observe("yahoo_rate_burst", result)

	cfg.News.FeedsFile = pkgconfig.LoadEnvString("NEWS_FEEDS_FILE", cfg.News.FeedsFile)

	result = pkgconfig.LoadEnvInt("NEWS_DEFAULT_LIMIT", cfg.News.DefaultLimit, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 50)
	})
	cfg.News.DefaultLimit = result.Value.(int)
	fallback.observe("news_default_limit", result)

	result = pkgconfig.LoadEnvInt("NEWS_MAX_LIMIT", cfg.News.MaxLimit, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 50)
	})
	cfg.News.MaxLimit = result.Value.(int)
	fallback.observe("news_max_limit", result)

	result = pkgconfig.LoadEnvDuration("NEWS_FETCH_TIMEOUT", cfg.News.FetchTimeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, 1*time.Second, 2*time.Minute)
	})
	cfg.News.FetchTimeout = result.Value.(time.Duration)
	fallback.observe("news_fetch_timeout", result)

	loadPrewarmEnv(&cfg, fallback)

	fallback.finish()
	return cfg
}

// TTLFor returns the cache TTL class for a chart interval.
func (c CacheConfig) TTLFor(intraday bool) time.Duration {
	if intraday {
		return c.IntradayTTL
	}
	return c.HistoricalTTL
}

func validateTransport(v string) error {
	if v != TransportStdio && v != TransportHTTP {
		return fmt.Errorf("must be %q or %q", TransportStdio, TransportHTTP)
	}
	return nil
}

// fallbackTracker funnels per-field fallback bookkeeping so LoadFromEnv
// stays readable with twenty-odd fields.
type fallbackTracker struct {
	logger  *slog.Logger
	metrics *pkgconfig.ConfigMetrics
	applied bool
}

func newFallbackTracker(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) *fallbackTracker {
	return &fallbackTracker{logger: logger, metrics: metrics}
}

// observe records metrics and warnings when a field fell back to its default.
func (f *fallbackTracker) observe(field string, result pkgconfig.ConfigLoadResult) {
	if !result.FallbackApplied {
		return
	}
	f.applied = true
	if f.metrics != nil {
		f.metrics.RecordValidationError(field)
		f.metrics.RecordFallback(field, "default")
	}
	for _, warning := range result.Warnings {
		f.logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}
}

// finish records the load timestamp and the aggregate fallback gauge.
func (f *fallbackTracker) finish() {
	if f.metrics == nil {
		return
	}
	f.metrics.SetFallbackActive("", f.applied)
	f.metrics.RecordLoadTimestamp()
}
