package mcp

import (
	"context"
	"time"

	"trading-mcp/internal/domain/entity"
	"trading-mcp/internal/pipeline"
	"trading-mcp/internal/usecase/market"
	"trading-mcp/internal/usecase/news"
)

// Tool argument structs. The SDK derives the input schemas from these, so
// the json and jsonschema tags are the model-facing contract: fields
// without omitempty are required.

type chartArgs struct {
	Symbol    string `json:"symbol" jsonschema:"NSE stock symbol (RELIANCE, TCS) or index code (^NSEI); plain names resolve to the .NS listing"`
	StartDate string `json:"start_date" jsonschema:"window start in YYYY-MM-DD"`
	EndDate   string `json:"end_date" jsonschema:"window end in YYYY-MM-DD, must be after start_date"`
	Interval  string `json:"interval,omitempty" jsonschema:"candle interval: 1m, 5m, 15m, 30m, 1h, 1d, 1wk or 1mo (default 1h)"`
}

type indicatorArgs struct {
	Symbol    string         `json:"symbol" jsonschema:"NSE stock symbol or index code"`
	Indicator string         `json:"indicator" jsonschema:"indicator name: RSI, SMA, EMA, MACD, BBANDS or ATR"`
	StartDate string         `json:"start_date" jsonschema:"window start in YYYY-MM-DD"`
	EndDate   string         `json:"end_date" jsonschema:"window end in YYYY-MM-DD, must be after start_date"`
	Interval  string         `json:"interval,omitempty" jsonschema:"candle interval (default 1d)"`
	Params    map[string]any `json:"params,omitempty" jsonschema:"indicator settings: period; MACD takes fast, slow, signal; BBANDS takes period and nbdev"`
}

type newsArgs struct {
	QueryType      string `json:"query_type" jsonschema:"'company' for one symbol's news, 'market' for market-wide headlines"`
	Query          string `json:"query,omitempty" jsonschema:"company symbol; required when query_type is 'company'"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum articles to return (default 10, max 50)"`
	IncludeContent bool   `json:"include_content,omitempty" jsonschema:"fetch full article text for the returned items"`
}

type statsArgs struct{}

// Wire payloads. Data and metadata are split here so the envelope carries
// the series under data and the descriptive fields under metadata.

type chartPayload struct {
	Candles []entity.Candle `json:"candles"`
}

type indicatorPayload struct {
	Indicator  string                  `json:"indicator"`
	Values     []entity.IndicatorPoint `json:"values"`
	Parameters map[string]any          `json:"parameters"`
}

type newsPayload struct {
	Articles []entity.NewsArticle `json:"articles"`
}

type newsMetadata struct {
	QueryType string `json:"query_type"`
	Query     string `json:"query,omitempty"`
	Count     int    `json:"count"`
}

type sloSummary struct {
	Availability float64 `json:"availability"`
	LatencyP95   float64 `json:"latency_p95_seconds"`
	LatencyP99   float64 `json:"latency_p99_seconds"`
	ErrorRate    float64 `json:"error_rate"`
}

type statsPayload struct {
	Pipelines []pipeline.Stats `json:"pipelines"`
	ToolSLO   sloSummary       `json:"tool_slo"`
}

type statsMetadata struct {
	GeneratedAt time.Time `json:"generated_at"`
}

func (d Deps) handleChart(ctx context.Context, in chartArgs) (any, any, error) {
	chart, err := d.Market.GetChartData(ctx, market.ChartQuery{
		Symbol:    in.Symbol,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Interval:  in.Interval,
	})
	if err != nil {
		return nil, nil, err
	}
	return chartPayload{Candles: chart.Candles}, chart.Meta, nil
}

func (d Deps) handleIndicator(ctx context.Context, in indicatorArgs) (any, any, error) {
	series, err := d.Market.CalculateIndicator(ctx, market.IndicatorQuery{
		Symbol:    in.Symbol,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Interval:  in.Interval,
		Indicator: in.Indicator,
		Params:    in.Params,
	})
	if err != nil {
		return nil, nil, err
	}
	payload := indicatorPayload{
		Indicator:  series.Indicator,
		Values:     series.Values,
		Parameters: series.Parameters,
	}
	return payload, series.Meta, nil
}

func (d Deps) handleNews(ctx context.Context, in newsArgs) (any, any, error) {
	articles, err := d.News.GetMarketNews(ctx, news.Query{
		QueryType:      in.QueryType,
		Query:          in.Query,
		Limit:          in.Limit,
		IncludeContent: in.IncludeContent,
	})
	if err != nil {
		return nil, nil, err
	}
	meta := newsMetadata{
		QueryType: in.QueryType,
		Query:     in.Query,
		Count:     len(articles),
	}
	return newsPayload{Articles: articles}, meta, nil
}

func (d Deps) handleStats(ctx context.Context, _ statsArgs) (any, any, error) {
	payload := statsPayload{
		Pipelines: make([]pipeline.Stats, 0, len(d.Pipelines)),
	}
	for _, p := range d.Pipelines {
		payload.Pipelines = append(payload.Pipelines, p.Stats())
	}

	availability, p95, p99, errorRate := d.Recorder.Snapshot()
	payload.ToolSLO = sloSummary{
		Availability: availability,
		LatencyP95:   p95,
		LatencyP99:   p99,
		ErrorRate:    errorRate,
	}

	return payload, statsMetadata{GeneratedAt: time.Now()}, nil
}
