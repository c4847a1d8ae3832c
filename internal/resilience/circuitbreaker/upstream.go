package circuitbreaker

import "time"

// Per-upstream presets. Each logical upstream dependency gets its own breaker
// instance so a failing news feed cannot blind the chart-data path.

// MarketDataConfig returns configuration for the market-data chart API.
// Opens after 5 consecutive failures, probes again after 30 seconds.
func MarketDataConfig() Config {
	return Config{
		Name:             "market-data",
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
	}
}

// NewsFeedConfig returns configuration for RSS news feed fetching. Feeds
// recover slowly, so the cooldown is longer than the chart path's.
func NewsFeedConfig() Config {
	return Config{
		Name:             "news-feed",
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// ArticleFetchConfig returns configuration for article content extraction.
// Trips earlier: a page that keeps failing is usually paywalled or blocked,
// and the caller has a summary to fall back on.
func ArticleFetchConfig() Config {
	return Config{
		Name:             "article-fetch",
		FailureThreshold: 3,
		RecoveryTimeout:  2 * time.Minute,
	}
}
