package config

import (
	"strings"

	pkgconfig "trading-mcp/internal/pkg/config"
)

// PrewarmConfig controls the cache prewarm scheduler. When enabled, a cron
// job fetches daily candles for the watchlist shortly before market open so
// the first tool calls of the day hit a warm cache instead of a cold
// upstream round trip.
type PrewarmConfig struct {
	// Enabled turns the scheduler on. Default: false
	Enabled bool

	// Schedule is a standard five-field cron expression evaluated in
	// Timezone. Default: "0 9 * * 1-5" (weekdays 09:00, before NSE open)
	Schedule string

	// Timezone is the IANA zone the schedule runs in.
	// Default: "Asia/Kolkata"
	Timezone string

	// Watchlist is the set of symbols to warm. Accepts the same forms as
	// the chart tool: plain NSE names and ^-prefixed indices.
	Watchlist []string

	// LookbackDays is the size of the warmed window, ending today.
	// Range: 1-365. Default: 30
	LookbackDays int

	// Parallelism bounds concurrent warm fetches. Range: 1-10. Default: 3
	Parallelism int
}

// DefaultPrewarmConfig returns the prewarm defaults: disabled, weekday
// 09:00 IST, the NIFTY index plus the largest NSE constituents.
func DefaultPrewarmConfig() PrewarmConfig {
	return PrewarmConfig{
		Schedule:     "0 9 * * 1-5",
		Timezone:     "Asia/Kolkata",
		Watchlist:    []string{"^NSEI", "RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK"},
		LookbackDays: 30,
		Parallelism:  3,
	}
}

// loadPrewarmEnv loads the PREWARM_* variables into cfg. Schedule and
// timezone go through the cron and IANA validators, so a malformed value
// falls back to a schedule that is known to parse rather than killing the
// scheduler at startup.
func loadPrewarmEnv(cfg *ServerConfig, fallback *fallbackTracker) {
	result := pkgconfig.LoadEnvBool("PREWARM_ENABLED", cfg.Prewarm.Enabled)
	cfg.Prewarm.Enabled = result.Value.(bool)
	fallback.observe("prewarm_enabled", result)

	result = pkgconfig.LoadEnvWithFallback("PREWARM_SCHEDULE", cfg.Prewarm.Schedule, pkgconfig.ValidateCronSchedule)
	cfg.Prewarm.Schedule = result.Value.(string)
	fallback.observe("prewarm_schedule", result)

	result = pkgconfig.LoadEnvWithFallback("PREWARM_TIMEZONE", cfg.Prewarm.Timezone, pkgconfig.ValidateTimezone)
	cfg.Prewarm.Timezone = result.Value.(string)
	fallback.observe("prewarm_timezone", result)

	if raw := pkgconfig.LoadEnvString("PREWARM_WATCHLIST", ""); raw != "" {
		cfg.Prewarm.Watchlist = splitWatchlist(raw)
	}

	result = pkgconfig.LoadEnvInt("PREWARM_LOOKBACK_DAYS", cfg.Prewarm.LookbackDays, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 365)
	})
	cfg.Prewarm.LookbackDays = result.Value.(int)
	fallback.observe("prewarm_lookback_days", result)

	result = pkgconfig.LoadEnvInt("PREWARM_PARALLELISM", cfg.Prewarm.Parallelism, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 10)
	})
	cfg.Prewarm.Parallelism = result.Value.(int)
	fallback.observe("prewarm_parallelism", result)
}

// splitWatchlist parses a comma-separated symbol list, dropping empty
// entries and surrounding whitespace.
func splitWatchlist(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
