// Package news implements the market-news lookup: company or market-wide
// headlines from configured RSS feeds, with optional full-text enrichment
// of the returned articles.
package news

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"trading-mcp/internal/cache"
	"trading-mcp/internal/config"
	"trading-mcp/internal/domain/entity"
	"trading-mcp/internal/observability/metrics"
	"trading-mcp/internal/pipeline"
)

// FeedFetcher pulls the articles of one RSS/Atom feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]entity.NewsArticle, error)
}

// ContentFetcher extracts the readable text of an article page.
type ContentFetcher interface {
	FetchContent(ctx context.Context, articleURL string) (string, error)
}

// ContentFetchConfig controls enrichment behavior: how many article fetches
// run at once and how long a feed summary must be before a fetch is skipped.
type ContentFetchConfig struct {
	Parallelism int
	Threshold   int
}

// Service answers news queries. Feed access runs through Pipeline, so
// repeated queries are served from cache and a failing feed host trips the
// breaker instead of stalling every request.
type Service struct {
	Feeds          *config.FeedsConfig
	FeedFetcher    FeedFetcher
	ContentFetcher ContentFetcher
	Pipeline       *pipeline.Pipeline
	Cache          config.CacheConfig
	News           config.NewsConfig
	contentConfig  ContentFetchConfig
}

// NewService creates a news service. A nil contentFetcher disables
// enrichment; include_content requests then return summaries only.
func NewService(
	feeds *config.FeedsConfig,
	feedFetcher FeedFetcher,
	contentFetcher ContentFetcher,
	pl *pipeline.Pipeline,
	cacheCfg config.CacheConfig,
	newsCfg config.NewsConfig,
	contentConfig ContentFetchConfig,
) Service {
	if feeds == nil {
		feeds = config.DefaultFeedsConfig()
	}
	defaults := config.DefaultConfig().News
	if newsCfg.DefaultLimit <= 0 {
		newsCfg.DefaultLimit = defaults.DefaultLimit
	}
	if newsCfg.MaxLimit <= 0 {
		newsCfg.MaxLimit = defaults.MaxLimit
	}
	return Service{
		Feeds:          feeds,
		FeedFetcher:    feedFetcher,
		ContentFetcher: contentFetcher,
		Pipeline:       pl,
		Cache:          cacheCfg,
		News:           newsCfg,
		contentConfig:  contentConfig,
	}
}

// Query carries the parameters of a news lookup. Query is the company
// symbol and only read for the company query type. A zero Limit takes the
// configured default; anything above the maximum is clamped.
type Query struct {
	QueryType      string
	Query          string
	Limit          int
	IncludeContent bool
}

// GetMarketNews returns the newest articles for the query, most recent
// first. Results are cached per query shape; enriched and summary-only
// lookups use separate entries.
func (s Service) GetMarketNews(ctx context.Context, q Query) ([]entity.NewsArticle, error) {
	if err := entity.ValidateQueryType(q.QueryType); err != nil {
		return nil, err
	}

	limit := q.Limit
	switch {
	case limit < 0:
		return nil, &entity.ValidationError{Field: "limit", Message: "limit must be positive"}
	case limit == 0:
		limit = s.News.DefaultLimit
	case limit > s.News.MaxLimit:
		limit = s.News.MaxLimit
	}

	var symbol string
	if q.QueryType == entity.QueryTypeCompany {
		if err := entity.ValidateSymbol(q.Query); err != nil {
			return nil, err
		}
		symbol = entity.NormalizeSymbol(q.Query)
	}

	includeContent := q.IncludeContent && s.ContentFetcher != nil
	key := cache.NewsKey(q.QueryType, symbol, limit, includeContent)
	return pipeline.Fetch(ctx, s.Pipeline, key, s.Cache.NewsTTL, func(ctx context.Context) ([]entity.NewsArticle, error) {
		var (
			articles []entity.NewsArticle
			err      error
		)
		if q.QueryType == entity.QueryTypeCompany {
			articles, err = s.fetchCompanyNews(ctx, symbol, limit)
		} else {
			articles, err = s.fetchMarketNews(ctx, limit)
		}
		if err != nil {
			return nil, err
		}
		if includeContent {
			if err := s.enrichContent(ctx, articles); err != nil {
				return nil, err
			}
		}
		return articles, nil
	})
}

func (s Service) fetchCompanyNews(ctx context.Context, symbol string, limit int) ([]entity.NewsArticle, error) {
	articles, err := s.FeedFetcher.Fetch(ctx, s.Feeds.CompanyFeedURL(symbol))
	if err != nil {
		return nil, fmt.Errorf("company feed for %s: %w", symbol, err)
	}
	return topArticles(articles, limit), nil
}

// fetchMarketNews pulls every configured market feed concurrently and
// merges the results. One dead feed must not blank the whole response, so
// per-feed failures are logged and skipped; the call fails only when no
// feed produced anything.
func (s Service) fetchMarketNews(ctx context.Context, limit int) ([]entity.NewsArticle, error) {
	feeds := s.Feeds.MarketFeeds()
	results := make([][]entity.NewsArticle, len(feeds))
	errs := make([]error, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	for i, feed := range feeds {
		g.Go(func() error {
			articles, err := s.FeedFetcher.Fetch(gctx, feed.URL)
			if err != nil {
				slog.Warn("market feed fetch failed",
					slog.String("feed", feed.Name),
					slog.Any("error", err))
				errs[i] = err
				return nil
			}
			results[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	var merged []entity.NewsArticle
	for _, articles := range results {
		merged = append(merged, articles...)
	}
	if len(merged) == 0 {
		for _, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("all market feeds failed: %w", err)
			}
		}
		// Every feed answered but none carried items.
		return nil, nil
	}
	return topArticles(merged, limit), nil
}

// enrichContent fills Content for each article, a bounded number of fetches
// at a time. Enrichment never fails the call: an article whose fetch fails
// keeps its feed summary as content. Only context cancellation aborts, so a
// partially-enriched list is never cached.
func (s Service) enrichContent(ctx context.Context, articles []entity.NewsArticle) error {
	parallelism := s.contentConfig.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	sem := make(chan struct{}, parallelism)

	g, gctx := errgroup.WithContext(ctx)
	for i := range articles {
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			articles[i].Content = s.enhanceContent(gctx, articles[i])
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// enhanceContent returns the best available content for one article: the
// extracted full text when the summary is short enough to warrant a fetch
// and extraction produced something longer, the feed summary otherwise.
func (s Service) enhanceContent(ctx context.Context, article entity.NewsArticle) string {
	if len(article.Summary) >= s.contentConfig.Threshold {
		slog.Debug("summary sufficient, skipping content fetch",
			slog.String("url", article.URL),
			slog.Int("summary_length", len(article.Summary)),
			slog.Int("threshold", s.contentConfig.Threshold))
		metrics.RecordContentFetchSkipped()
		return article.Summary
	}

	content, err := s.ContentFetcher.FetchContent(ctx, article.URL)
	if err != nil {
		slog.Warn("content fetch failed, using feed summary",
			slog.String("url", article.URL),
			slog.Any("error", err))
		return article.Summary
	}
	// Extraction sometimes yields less than the feed already had.
	if len(content) < len(article.Summary) {
		return article.Summary
	}
	return content
}

func topArticles(articles []entity.NewsArticle, limit int) []entity.NewsArticle {
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles
}
