package market

import (
	"context"
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"

	"trading-mcp/internal/domain/entity"
)

// Parameter defaults follow the common charting conventions.
const (
	defaultRSIPeriod    = 14
	defaultMAPeriod     = 20
	defaultATRPeriod    = 14
	defaultFastPeriod   = 12
	defaultSlowPeriod   = 26
	defaultSignalPeriod = 9
	defaultBandDev      = 2.0

	minPeriod = 2
	maxPeriod = 500
)

// IndicatorQuery carries the parameters of an indicator request. Params
// holds indicator-specific settings ("period", MACD's "fast"/"slow"/"signal",
// Bollinger's "nbdev"); absent keys take the defaults above. An empty
// Interval means DefaultIndicatorInterval.
type IndicatorQuery struct {
	Symbol    string
	StartDate string
	EndDate   string
	Interval  string
	Indicator string
	Params    map[string]any
}

// CalculateIndicator fetches candles for the window through the cached
// pipeline and computes the requested indicator series over them. The chart
// fetch uses the same cache key as GetChartData, so an indicator call right
// after a chart call does not hit the upstream again.
func (s Service) CalculateIndicator(ctx context.Context, q IndicatorQuery) (*entity.IndicatorSeries, error) {
	interval := q.Interval
	if interval == "" {
		interval = DefaultIndicatorInterval
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
	if err := entity.ValidateIndicator(q.Indicator); err != nil {
		return nil, err
	}

	symbol := entity.NormalizeSymbol(q.Symbol)
	chart, err := s.fetchChart(ctx, symbol, q.StartDate, q.EndDate, start, end, interval)
	if err != nil {
		return nil, err
	}
	return computeIndicator(entity.NormalizeIndicator(q.Indicator), chart, q.Params)
}

// indicatorColumn is one named output of a computation, parallel to the
// candle slice it was computed from.
type indicatorColumn struct {
	name   string
	values []float64
}

func computeIndicator(name string, chart *entity.ChartData, params map[string]any) (*entity.IndicatorSeries, error) {
	closes := closePrices(chart.Candles)

	switch name {
	case entity.IndicatorRSI:
		period, err := intParam(params, "period", defaultRSIPeriod)
		if err != nil {
			return nil, err
		}
		if err := checkPeriod("period", period); err != nil {
			return nil, err
		}
		// RSI needs one extra candle for the first price change.
		if err := requireCandles(chart, name, period); err != nil {
			return nil, err
		}
		return newSeries(name, chart, period, map[string]any{"period": period},
			indicatorColumn{"rsi", talib.Rsi(closes, period)}), nil

	case entity.IndicatorSMA:
		period, err := intParam(params, "period", defaultMAPeriod)
		if err != nil {
			return nil, err
		}
		if err := checkPeriod("period", period); err != nil {
			return nil, err
		}
		if err := requireCandles(chart, name, period-1); err != nil {
			return nil, err
		}
		return newSeries(name, chart, period-1, map[string]any{"period": period},
			indicatorColumn{"sma", talib.Sma(closes, period)}), nil

	case entity.IndicatorEMA:
		period, err := intParam(params, "period", defaultMAPeriod)
		if err != nil {
			return nil, err
		}
		if err := checkPeriod("period", period); err != nil {
			return nil, err
		}
		if err := requireCandles(chart, name, period-1); err != nil {
			return nil, err
		}
		return newSeries(name, chart, period-1, map[string]any{"period": period},
			indicatorColumn{"ema", talib.Ema(closes, period)}), nil

	case entity.IndicatorMACD:
		fast, err := intParam(params, "fast", defaultFastPeriod)
		if err != nil {
			return nil, err
		}
		slow, err := intParam(params, "slow", defaultSlowPeriod)
		if err != nil {
			return nil, err
		}
		signal, err := intParam(params, "signal", defaultSignalPeriod)
		if err != nil {
			return nil, err
		}
		for key, v := range map[string]int{"fast": fast, "slow": slow, "signal": signal} {
			if err := checkPeriod(key, v); err != nil {
				return nil, err
			}
		}
		if fast >= slow {
			return nil, &entity.ValidationError{Field: "params", Message: "fast must be less than slow"}
		}
		// The slow EMA and the signal EMA warm up back to back.
		lookback := slow + signal - 2
		if err := requireCandles(chart, name, lookback); err != nil {
			return nil, err
		}
		macd, sig, hist := talib.Macd(closes, fast, slow, signal)
		return newSeries(name, chart, lookback, map[string]any{"fast": fast, "slow": slow, "signal": signal},
			indicatorColumn{"macd", macd},
			indicatorColumn{"signal", sig},
			indicatorColumn{"histogram", hist}), nil

	case entity.IndicatorBBands:
		period, err := intParam(params, "period", defaultMAPeriod)
		if err != nil {
			return nil, err
		}
		nbdev, err := floatParam(params, "nbdev", defaultBandDev)
		if err != nil {
			return nil, err
		}
		if err := checkPeriod("period", period); err != nil {
			return nil, err
		}
		if nbdev <= 0 || nbdev > 10 {
			return nil, &entity.ValidationError{Field: "params", Message: "nbdev must be greater than 0 and at most 10"}
		}
		if err := requireCandles(chart, name, period-1); err != nil {
			return nil, err
		}
		upper, middle, lower := talib.BBands(closes, period, nbdev, nbdev, talib.SMA)
		return newSeries(name, chart, period-1, map[string]any{"period": period, "nbdev": nbdev},
			indicatorColumn{"upper", upper},
			indicatorColumn{"middle", middle},
			indicatorColumn{"lower", lower}), nil

	case entity.IndicatorATR:
		period, err := intParam(params, "period", defaultATRPeriod)
		if err != nil {
			return nil, err
		}
		if err := checkPeriod("period", period); err != nil {
			return nil, err
		}
		// True range needs the previous close, so ATR warms up a full period.
		if err := requireCandles(chart, name, period); err != nil {
			return nil, err
		}
		highs, lows := highPrices(chart.Candles), lowPrices(chart.Candles)
		return newSeries(name, chart, period, map[string]any{"period": period},
			indicatorColumn{"atr", talib.Atr(highs, lows, closes, period)}), nil

	default:
		return nil, &entity.ValidationError{Field: "indicator", Message: fmt.Sprintf("unsupported indicator %q", name)}
	}
}

// newSeries assembles the response from full-length library output. The
// library pads the first lookback slots with zeros; those carry no signal
// and are dropped. Callers have already checked the candle count, so the
// result has at least one point.
func newSeries(name string, chart *entity.ChartData, lookback int, params map[string]any, cols ...indicatorColumn) *entity.IndicatorSeries {
	points := make([]entity.IndicatorPoint, 0, len(chart.Candles)-lookback)
	for i := lookback; i < len(chart.Candles); i++ {
		values := make(map[string]float64, len(cols))
		for _, col := range cols {
			values[col.name] = round4(col.values[i])
		}
		points = append(points, entity.IndicatorPoint{
			Timestamp: chart.Candles[i].Timestamp,
			Values:    values,
		})
	}

	meta := chart.Meta
	meta.DataPoints = len(points)
	return &entity.IndicatorSeries{
		Indicator:  name,
		Values:     points,
		Parameters: params,
		Meta:       meta,
	}
}

// requireCandles rejects windows shorter than the indicator warm-up before
// any computation runs.
func requireCandles(chart *entity.ChartData, name string, lookback int) error {
	if len(chart.Candles) <= lookback {
		return fmt.Errorf("%w: %s needs at least %d candles in range, got %d",
			entity.ErrNoData, name, lookback+1, len(chart.Candles))
	}
	return nil
}

func checkPeriod(key string, period int) error {
	if period < minPeriod || period > maxPeriod {
		return &entity.ValidationError{
			Field:   "params",
			Message: fmt.Sprintf("%s must be between %d and %d", key, minPeriod, maxPeriod),
		}
	}
	return nil
}

// intParam reads an integer parameter, tolerating the float64 the JSON
// decoder produces for every number. Fractional values are rejected rather
// than truncated.
func intParam(params map[string]any, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, &entity.ValidationError{Field: "params", Message: fmt.Sprintf("%s must be a whole number", key)}
		}
		return int(n), nil
	default:
		return 0, &entity.ValidationError{Field: "params", Message: fmt.Sprintf("%s must be a number", key)}
	}
}

func floatParam(params map[string]any, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, &entity.ValidationError{Field: "params", Message: fmt.Sprintf("%s must be a number", key)}
	}
}

func closePrices(candles []entity.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func highPrices(candles []entity.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func lowPrices(candles []entity.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// round4 trims float noise from library output before serialization.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
