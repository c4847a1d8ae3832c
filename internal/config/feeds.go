package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// symbolPlaceholder is substituted with the normalized ticker when building
// a company feed URL.
const symbolPlaceholder = "{symbol}"

// FeedSource is a single named RSS feed.
type FeedSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FeedsConfig is the news feed catalog: a URL template for per-company
// headline feeds and a list of market-wide feeds.
//
// YAML layout:
//
//	news:
//	  company_feed_template: "https://feeds.finance.yahoo.com/rss/2.0/headline?s={symbol}&region=IN&lang=en-IN"
//	  market_feeds:
//	    - name: economic-times-markets
//	      url: https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms
type FeedsConfig struct {
	News struct {
		CompanyFeedTemplate string       `yaml:"company_feed_template"`
		MarketFeeds         []FeedSource `yaml:"market_feeds"`
	} `yaml:"news"`
}

// DefaultFeedsConfig returns the built-in catalog: Yahoo Finance headline
// RSS for company queries and the major Indian market feeds.
func DefaultFeedsConfig() *FeedsConfig {
	cfg := &FeedsConfig{}
	cfg.News.CompanyFeedTemplate = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=" + symbolPlaceholder + "&region=IN&lang=en-IN"
	cfg.News.MarketFeeds = []FeedSource{
		{Name: "economic-times-markets", URL: "https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms"},
		{Name: "moneycontrol-markets", URL: "https://www.moneycontrol.com/rss/marketsnews.xml"},
		{Name: "livemint-markets", URL: "https://www.livemint.com/rss/markets"},
	}
	return cfg
}

// LoadFeedsConfig loads the feed catalog from a YAML file. An empty path
// returns the built-in defaults. Decoding is strict: unknown YAML keys are
// an error, so a typoed field name does not silently drop feeds.
// The path parameter comes from a trusted source (NEWS_FEEDS_FILE or a CLI
// argument), not from tool input.
func LoadFeedsConfig(path string) (*FeedsConfig, error) {
	if path == "" {
		return DefaultFeedsConfig(), nil
	}

	// #nosec G304 -- path is provided by trusted source (env or CLI arg), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file: %w", err)
	}

	var cfg FeedsConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("feeds file %s is empty", path)
		}
		return nil, fmt.Errorf("failed to parse feeds file: %w", err)
	}

	if cfg.News.CompanyFeedTemplate == "" {
		cfg.News.CompanyFeedTemplate = DefaultFeedsConfig().News.CompanyFeedTemplate
	}
	if len(cfg.News.MarketFeeds) == 0 {
		cfg.News.MarketFeeds = DefaultFeedsConfig().News.MarketFeeds
	}

	if err := validateFeedsConfig(&cfg); err != nil {
		return nil, fmt.Errorf("feeds config validation failed: %w", err)
	}

	return &cfg, nil
}

// validateFeedsConfig checks the catalog for entries that would fail at
// fetch time.
func validateFeedsConfig(cfg *FeedsConfig) error {
	if !strings.Contains(cfg.News.CompanyFeedTemplate, symbolPlaceholder) {
		return fmt.Errorf("company_feed_template must contain %q", symbolPlaceholder)
	}
	if err := validateFeedURL(strings.ReplaceAll(cfg.News.CompanyFeedTemplate, symbolPlaceholder, "TEST.NS")); err != nil {
		return fmt.Errorf("company_feed_template: %w", err)
	}

	seen := make(map[string]bool, len(cfg.News.MarketFeeds))
	for i, feed := range cfg.News.MarketFeeds {
		if feed.Name == "" {
			return fmt.Errorf("market_feeds[%d]: name is required", i)
		}
		if seen[feed.Name] {
			return fmt.Errorf("market_feeds[%d]: duplicate name %q", i, feed.Name)
		}
		seen[feed.Name] = true
		if err := validateFeedURL(feed.URL); err != nil {
			return fmt.Errorf("market_feeds[%d] (%s): %w", i, feed.Name, err)
		}
	}
	return nil
}

func validateFeedURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}

// CompanyFeedURL builds the headline feed URL for a normalized symbol.
func (c *FeedsConfig) CompanyFeedURL(symbol string) string {
	return strings.ReplaceAll(c.News.CompanyFeedTemplate, symbolPlaceholder, url.QueryEscape(symbol))
}

// MarketFeeds returns the configured market-wide feeds.
func (c *FeedsConfig) MarketFeeds() []FeedSource {
	return c.News.MarketFeeds
}
