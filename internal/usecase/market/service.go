// Package market implements the chart-data and technical-indicator
// operations. All upstream access runs through a resilient pipeline, so
// concurrent identical queries coalesce into one provider call and a
// tripped breaker rejects immediately instead of hammering the API.
package market

import (
	"context"
	"time"

	"trading-mcp/internal/cache"
	"trading-mcp/internal/config"
	"trading-mcp/internal/domain/entity"
	"trading-mcp/internal/pipeline"
)

// Interval defaults applied when a query leaves the field empty. Chart
// requests favor intraday granularity; indicator math wants daily candles.
const (
	DefaultChartInterval     = "1h"
	DefaultIndicatorInterval = "1d"
)

// ChartProvider fetches OHLCV candles from the upstream market-data API.
type ChartProvider interface {
	FetchCandles(ctx context.Context, symbol string, start, end time.Time, interval string) (*entity.ChartData, error)
}

// Service answers chart and indicator queries.
type Service struct {
	Provider ChartProvider
	Pipeline *pipeline.Pipeline
	Cache    config.CacheConfig
}

// NewService creates a market data service backed by the given provider
// and pipeline.
func NewService(provider ChartProvider, pl *pipeline.Pipeline, cacheCfg config.CacheConfig) Service {
	return Service{
		Provider: provider,
		Pipeline: pl,
		Cache:    cacheCfg,
	}
}

// ChartQuery carries the parameters of a chart-data request. Dates use the
// YYYY-MM-DD layout. An empty Interval means DefaultChartInterval.
type ChartQuery struct {
	Symbol    string
	StartDate string
	EndDate   string
	Interval  string
}

// GetChartData validates the query, normalizes the symbol for the NSE and
// returns candles for the requested window. Results are cached per
// symbol, range and interval; intraday intervals get the short TTL class.
func (s Service) GetChartData(ctx context.Context, q ChartQuery) (*entity.ChartData, error) {
	interval := q.Interval
	if interval == "" {
		interval = DefaultChartInterval
	}

	if err := entity.ValidateSymbol(q.Symbol); err != nil {
		return nil, err
	}
	start, end, err := entity.ValidateDateRange(q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	if err := entity.ValidateInterval(interval); err != nil {
		return nil, err
	}

	symbol := entity.NormalizeSymbol(q.Symbol)
	return s.fetchChart(ctx, symbol, q.StartDate, q.EndDate, start, end, interval)
}

// fetchChart is the shared cached path for charts and indicators. Both use
// the same key layout, so a chart fetch warms a following indicator call
// over the same window and vice versa.
func (s Service) fetchChart(ctx context.Context, symbol, startDate, endDate string, start, end time.Time, interval string) (*entity.ChartData, error) {
	key := cache.ChartKey(symbol, startDate, endDate, interval)
	ttl := s.Cache.TTLFor(entity.IsIntradayInterval(interval))
	return pipeline.Fetch(ctx, s.Pipeline, key, ttl, func(ctx context.Context) (*entity.ChartData, error) {
		return s.Provider.FetchCandles(ctx, symbol, start, end, interval)
	})
}
