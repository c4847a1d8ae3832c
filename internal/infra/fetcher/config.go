package fetcher

import (
	"fmt"
	"log/slog"
	"time"

	pkgconfig "trading-mcp/internal/pkg/config"
)

// ContentFetchConfig holds the configuration for article content
// extraction.
//
// Security settings:
//   - DenyPrivateIPs: blocks private addresses (SSRF prevention)
//   - MaxBodySize: caps response size to prevent memory exhaustion
//   - MaxRedirects: bounds redirect chains
//   - Timeout: bounds a single page fetch
//
// Behavior settings:
//   - Enabled: feature toggle for full-text enrichment
//   - Threshold: minimum summary length that makes fetching unnecessary
//   - Parallelism: concurrent enrichment bound used by the news usecase
type ContentFetchConfig struct {
	// Enabled controls whether content fetching runs at all. When false
	// every article keeps its feed summary. Default: true
	Enabled bool

	// Threshold is the summary length (in characters) above which the
	// feed already carries enough text and the source page is not
	// fetched. Zero always fetches. Default: 1500
	Threshold int

	// Timeout bounds a single page fetch. Default: 10s
	Timeout time.Duration

	// Parallelism bounds concurrent enrichment fetches per news request.
	// Range: 1-50. Default: 5
	Parallelism int

	// MaxBodySize is the maximum response body in bytes, enforced while
	// reading rather than trusted from Content-Length. Default: 10MB
	MaxBodySize int64

	// MaxRedirects bounds the redirect chain; every hop is re-validated
	// against the SSRF rules. Range: 0-10. Default: 5
	MaxRedirects int

	// DenyPrivateIPs rejects URLs resolving to private, loopback, or
	// link-local addresses. Tests against local servers disable it;
	// production never should. Default: true
	DenyPrivateIPs bool
}

// DefaultConfig returns production-ready content fetch settings.
func DefaultConfig() ContentFetchConfig {
	return ContentFetchConfig{
		Enabled:        true,
		Threshold:      1500,
		Timeout:        10 * time.Second,
		Parallelism:    5,
		MaxBodySize:    10 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks that the configured values are usable and safe.
func (c *ContentFetchConfig) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Parallelism < 1 || c.Parallelism > 50 {
		return fmt.Errorf("parallelism must be between 1 and 50, got %d", c.Parallelism)
	}
	minBody := int64(1024)
	maxBody := int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBody || c.MaxBodySize > maxBody {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBody, maxBody, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv loads content fetch settings from the environment,
// falling back per field to the defaults when a value is missing or out
// of range. Fallbacks are logged and counted; a bad value never stops
// startup because enrichment is an optional layer over the feed summary.
//
// Environment variables:
//   - CONTENT_FETCH_ENABLED: "true" or "false" (default: true)
//   - CONTENT_FETCH_THRESHOLD: integer characters (default: 1500)
//   - CONTENT_FETCH_TIMEOUT: duration, e.g. "10s" (default: 10s)
//   - CONTENT_FETCH_PARALLELISM: integer 1-50 (default: 5)
//   - CONTENT_FETCH_MAX_BODY_SIZE: integer bytes (default: 10485760)
//   - CONTENT_FETCH_MAX_REDIRECTS: integer 0-10 (default: 5)
//   - CONTENT_FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
func LoadConfigFromEnv(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) ContentFetchConfig {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := DefaultConfig()
	fallbackApplied := false

	observe := func(field string, result pkgconfig.ConfigLoadResult) {
		if !result.FallbackApplied {
			return
		}
		fallbackApplied = true
		if metrics != nil {
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field, "default")
		}
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	result := pkgconfig.LoadEnvBool("CONTENT_FETCH_ENABLED", cfg.Enabled)
	observe("content_fetch_enabled", result)
	cfg.Enabled = result.Value.(bool)

	result = pkgconfig.LoadEnvInt("CONTENT_FETCH_THRESHOLD", cfg.Threshold, func(v int) error {
		if v < 0 {
			return fmt.Errorf("threshold must be non-negative, got %d", v)
		}
		return nil
	})
	observe("content_fetch_threshold", result)
	cfg.Threshold = result.Value.(int)

	result = pkgconfig.LoadEnvDuration("CONTENT_FETCH_TIMEOUT", cfg.Timeout, func(v time.Duration) error {
		if v < time.Second || v > 2*time.Minute {
			return fmt.Errorf("timeout must be between 1s and 2m, got %v", v)
		}
		return nil
	})
	observe("content_fetch_timeout", result)
	cfg.Timeout = result.Value.(time.Duration)

	result = pkgconfig.LoadEnvInt("CONTENT_FETCH_PARALLELISM", cfg.Parallelism, func(v int) error {
		if v < 1 || v > 50 {
			return fmt.Errorf("parallelism must be between 1 and 50, got %d", v)
		}
		return nil
	})
	observe("content_fetch_parallelism", result)
	cfg.Parallelism = result.Value.(int)

	result = pkgconfig.LoadEnvInt("CONTENT_FETCH_MAX_BODY_SIZE", int(cfg.MaxBodySize), func(v int) error {
		if v < 1024 || v > 100*1024*1024 {
			return fmt.Errorf("max body size must be between 1KB and 100MB, got %d", v)
		}
		return nil
	})
	observe("content_fetch_max_body_size", result)
	cfg.MaxBodySize = int64(result.Value.(int))

	result = pkgconfig.LoadEnvInt("CONTENT_FETCH_MAX_REDIRECTS", cfg.MaxRedirects, func(v int) error {
		if v < 0 || v > 10 {
			return fmt.Errorf("max redirects must be between 0 and 10, got %d", v)
		}
		return nil
	})
	observe("content_fetch_max_redirects", result)
	cfg.MaxRedirects = result.Value.(int)

	result = pkgconfig.LoadEnvBool("CONTENT_FETCH_DENY_PRIVATE_IPS", cfg.DenyPrivateIPs)
	observe("content_fetch_deny_private_ips", result)
	cfg.DenyPrivateIPs = result.Value.(bool)

	if metrics != nil {
		metrics.SetFallbackActive("", fallbackApplied)
		metrics.RecordLoadTimestamp()
	}
	return cfg
}
