// Package newsfeed fetches and parses RSS/Atom market news feeds.
// It uses the gofeed library for parsing; caching, retry, and circuit
// breaking belong to the news pipeline wrapping it.
package newsfeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"trading-mcp/internal/domain/entity"
	"trading-mcp/internal/observability/metrics"
	"trading-mcp/internal/resilience/retry"
)

// userAgent identifies the service to feed publishers.
const userAgent = "trading-mcp/1.0"

// Fetcher retrieves news articles from RSS/Atom feeds.
// It is safe for concurrent use.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher using the given HTTP client. A nil client
// falls back to a 15 second timeout, matching the default fetch budget.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client}
}

// Fetch retrieves and parses the feed at feedURL.
// Items map to entity.NewsArticle in feed order; the publisher's own
// ordering (newest first for every supported feed) is preserved so the
// caller can merge and trim without re-sorting single-feed results.
//
// HTTP 5xx, 429, and 408 from the publisher become retry.HTTPError;
// every other failure is wrapped in entity.ErrUpstream.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]entity.NewsArticle, error) {
	began := time.Now()

	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		metrics.RecordFeedFetchError(feedLabel(feedURL), classifyError(err))
		return nil, mapFeedError(err, feedURL)
	}

	source := feed.Title
	if source == "" {
		source = feedLabel(feedURL)
	}

	articles := make([]entity.NewsArticle, 0, len(feed.Items))
	for _, it := range feed.Items {
		pubAt := time.Now()
		if it.PublishedParsed != nil {
			pubAt = *it.PublishedParsed
		}

		// Content優先、なければDescriptionを使用
		summary := it.Content
		if summary == "" {
			summary = it.Description
		}

		articles = append(articles, entity.NewsArticle{
			Title:       it.Title,
			Summary:     summary,
			URL:         it.Link,
			Source:      source,
			PublishedAt: pubAt,
		})
	}

	metrics.RecordFeedFetch(feedLabel(feedURL), time.Since(began), len(articles))
	return articles, nil
}

// mapFeedError converts a gofeed failure into the transient/permanent
// taxonomy shared with the chart client.
func mapFeedError(err error, feedURL string) error {
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 500 ||
			httpErr.StatusCode == http.StatusTooManyRequests ||
			httpErr.StatusCode == http.StatusRequestTimeout {
			return &retry.HTTPError{StatusCode: httpErr.StatusCode, Message: httpErr.Status}
		}
		return fmt.Errorf("%w: feed %s: %s", entity.ErrUpstream, feedLabel(feedURL), httpErr.Status)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: feed %s: %v", entity.ErrUpstream, feedLabel(feedURL), err)
}

// classifyError buckets failures for the feed error counter.
func classifyError(err error) string {
	var httpErr gofeed.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "parse_error"
	}
}

// feedLabel keeps metric cardinality bounded by labeling feeds with their
// host rather than the full URL (company feeds embed the symbol).
func feedLabel(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
