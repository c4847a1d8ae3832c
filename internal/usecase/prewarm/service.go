// Package prewarm warms the chart cache for a configured watchlist so the
// first tool calls after market open are served without an upstream round
// trip.
package prewarm

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"trading-mcp/internal/config"
	"trading-mcp/internal/observability/metrics"
	"trading-mcp/internal/usecase/market"
)

// dateLayout matches the chart tool's date parameters.
const dateLayout = "2006-01-02"

// Service runs watchlist warm-up passes against the market service. Every
// fetch goes through the normal cached pipeline, so a pass both fills the
// cache and exercises the exact path tool calls use.
type Service struct {
	Market market.Service
	Config config.PrewarmConfig
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used to compute the warm window.
// Tests use it to run against a fixed date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a prewarm service for the given watchlist config.
func NewService(marketSvc market.Service, cfg config.PrewarmConfig, opts ...Option) *Service {
	s := &Service{
		Market: marketSvc,
		Config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats summarizes one warm-up pass.
type Stats struct {
	Symbols  int
	Warmed   int64
	Failed   int64
	Duration time.Duration
}

// WarmWatchlist fetches daily candles over the lookback window for every
// watchlist symbol, bounded by the configured parallelism. Per-symbol
// failures are counted and logged, never propagated: a failed warm only
// means the first real call for that symbol pays the fetch itself.
func (s *Service) WarmWatchlist(ctx context.Context) *Stats {
	logger := slog.Default()
	start := time.Now()
	stats := &Stats{Symbols: len(s.Config.Watchlist)}

	today := s.now()
	startDate := today.AddDate(0, 0, -s.Config.LookbackDays).Format(dateLayout)
	endDate := today.Format(dateLayout)

	parallelism := s.Config.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	sem := make(chan struct{}, parallelism)
	g, gctx := errgroup.WithContext(ctx)

	for _, symbol := range s.Config.Watchlist {
		sym := symbol
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			_, err := s.Market.GetChartData(gctx, market.ChartQuery{
				Symbol:    sym,
				StartDate: startDate,
				EndDate:   endDate,
				Interval:  "1d",
			})
			if err != nil {
				atomic.AddInt64(&stats.Failed, 1)
				metrics.RecordPrewarmSymbol(false)
				logger.Warn("Prewarm fetch failed",
					slog.String("symbol", sym),
					slog.String("error", err.Error()))
				return nil
			}

			atomic.AddInt64(&stats.Warmed, 1)
			metrics.RecordPrewarmSymbol(true)
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(start)
	metrics.RecordPrewarmRun(stats.Failed == 0, stats.Duration)
	logger.Info("Prewarm pass completed",
		slog.Int("symbols", stats.Symbols),
		slog.Int64("warmed", stats.Warmed),
		slog.Int64("failed", stats.Failed),
		slog.Duration("duration", stats.Duration),
	)

	return stats
}
