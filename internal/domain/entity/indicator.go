package entity

import (
	"encoding/json"
	"time"
)

// Supported technical indicator names. Input is matched case-insensitively
// after normalization.
const (
	IndicatorRSI    = "RSI"
	IndicatorSMA    = "SMA"
	IndicatorEMA    = "EMA"
	IndicatorMACD   = "MACD"
	IndicatorBBands = "BBANDS"
	IndicatorATR    = "ATR"
)

var validIndicators = map[string]bool{
	IndicatorRSI:    true,
	IndicatorSMA:    true,
	IndicatorEMA:    true,
	IndicatorMACD:   true,
	IndicatorBBands: true,
	IndicatorATR:    true,
}

// IndicatorPoint is one timestamped set of indicator values. Single-valued
// indicators carry one entry (e.g. "rsi"); MACD carries "macd", "signal",
// and "histogram"; Bollinger Bands carry "upper", "middle", and "lower".
type IndicatorPoint struct {
	Timestamp time.Time
	Values    map[string]float64
}

// MarshalJSON flattens the value map into the point object, so a point
// serializes as {"timestamp": ..., "rsi": ...} rather than nesting the
// values under a separate key.
func (p IndicatorPoint) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Values)+1)
	m["timestamp"] = p.Timestamp
	for k, v := range p.Values {
		m[k] = v
	}
	return json.Marshal(m)
}

// IndicatorSeries is the payload produced by an indicator computation.
// Values are ordered by timestamp with warm-up points already trimmed.
type IndicatorSeries struct {
	Indicator  string           `json:"indicator"`
	Values     []IndicatorPoint `json:"values"`
	Parameters map[string]any   `json:"parameters"`
	Meta       ChartMeta        `json:"metadata"`
}
