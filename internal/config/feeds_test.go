package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFeedsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultFeedsConfig(t *testing.T) {
	cfg := DefaultFeedsConfig()

	assert.Contains(t, cfg.News.CompanyFeedTemplate, "{symbol}")
	require.NotEmpty(t, cfg.News.MarketFeeds)
	for _, feed := range cfg.News.MarketFeeds {
		assert.NotEmpty(t, feed.Name)
		assert.True(t, strings.HasPrefix(feed.URL, "https://"), "feed %s should use https", feed.Name)
	}
}

func TestLoadFeedsConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadFeedsConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFeedsConfig(), cfg)
}

func TestLoadFeedsConfig_ValidFile(t *testing.T) {
	path := writeFeedsFile(t, `
news:
  company_feed_template: "https://example.com/rss?s={symbol}"
  market_feeds:
    - name: test-markets
      url: https://example.com/markets.rss
    - name: test-business
      url: https://example.com/business.rss
`)

	cfg, err := LoadFeedsConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/rss?s={symbol}", cfg.News.CompanyFeedTemplate)
	require.Len(t, cfg.News.MarketFeeds, 2)
	assert.Equal(t, "test-markets", cfg.News.MarketFeeds[0].Name)
	assert.Equal(t, "https://example.com/business.rss", cfg.News.MarketFeeds[1].URL)
}

func TestLoadFeedsConfig_PartialFileFillsDefaults(t *testing.T) {
	path := writeFeedsFile(t, `
news:
  market_feeds:
    - name: only-feed
      url: https://example.com/only.rss
`)

	cfg, err := LoadFeedsConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultFeedsConfig().News.CompanyFeedTemplate, cfg.News.CompanyFeedTemplate)
	require.Len(t, cfg.News.MarketFeeds, 1)
	assert.Equal(t, "only-feed", cfg.News.MarketFeeds[0].Name)
}

func TestLoadFeedsConfig_UnknownFieldRejected(t *testing.T) {
	path := writeFeedsFile(t, `
news:
  company_feed_tmplate: "https://example.com/rss?s={symbol}"
`)

	_, err := LoadFeedsConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoadFeedsConfig_FileNotFound(t *testing.T) {
	_, err := LoadFeedsConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read")
}

func TestLoadFeedsConfig_EmptyFile(t *testing.T) {
	path := writeFeedsFile(t, "")
	_, err := LoadFeedsConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestLoadFeedsConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "TemplateWithoutPlaceholder",
			yaml: `
news:
  company_feed_template: "https://example.com/rss"
`,
			wantErr: "{symbol}",
		},
		{
			name: "FeedMissingName",
			yaml: `
news:
  market_feeds:
    - url: https://example.com/feed.rss
`,
			wantErr: "name is required",
		},
		{
			name: "FeedMissingURL",
			yaml: `
news:
  market_feeds:
    - name: broken
`,
			wantErr: "url is required",
		},
		{
			name: "FeedBadScheme",
			yaml: `
news:
  market_feeds:
    - name: local
      url: file:///etc/passwd
`,
			wantErr: "scheme",
		},
		{
			name: "DuplicateFeedName",
			yaml: `
news:
  market_feeds:
    - name: twice
      url: https://example.com/a.rss
    - name: twice
      url: https://example.com/b.rss
`,
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFeedsFile(t, tt.yaml)
			_, err := LoadFeedsConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompanyFeedURL(t *testing.T) {
	cfg := DefaultFeedsConfig()

	url := cfg.CompanyFeedURL("RELIANCE.NS")
	assert.Contains(t, url, "s=RELIANCE.NS")
	assert.NotContains(t, url, "{symbol}")

	// Index symbols carry a caret that must be query-escaped.
	indexURL := cfg.CompanyFeedURL("^NSEI")
	assert.Contains(t, indexURL, "%5ENSEI")
}
