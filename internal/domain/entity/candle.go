// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Candle, IndicatorSeries, and
// NewsArticle, along with their validation rules and domain-specific errors.
package entity

import "time"

// Candle represents one OHLCV bar returned by the market data provider.
// Timestamps carry the exchange timezone (Asia/Kolkata for NSE symbols).
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// ChartMeta describes a candle series: the resolved symbol, the requested
// interval, and the provider's currency and timezone.
type ChartMeta struct {
	Symbol     string `json:"symbol"`
	Interval   string `json:"interval"`
	Currency   string `json:"currency"`
	Timezone   string `json:"timezone"`
	DataPoints int    `json:"data_points"`
}

// ChartData is the payload produced by a chart fetch.
type ChartData struct {
	Candles []Candle  `json:"candles"`
	Meta    ChartMeta `json:"meta"`
}
