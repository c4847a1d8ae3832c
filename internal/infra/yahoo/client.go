// Package yahoo implements the market-data client for the Yahoo Finance
// v8 chart API. It fetches OHLCV series for NSE symbols and converts the
// chart envelope into domain candles with exchange-local timestamps.
//
// The client performs a single HTTP round trip per call. Resilience
// (circuit breaker, retry, caching) belongs to the fetch pipeline that
// wraps it; the client's job is throttling, decoding, and classifying
// failures so the layers above can tell transient from permanent.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trading-mcp/internal/config"
	"trading-mcp/internal/domain/entity"
	"trading-mcp/internal/observability/metrics"
	"trading-mcp/internal/resilience/retry"
)

const (
	// upstreamName labels this client in upstream request metrics.
	upstreamName = "yahoo"

	// chartPathPrefix is the v8 chart endpoint. The symbol is appended
	// path-escaped.
	chartPathPrefix = "/v8/finance/chart/"

	// exchangeTimezone is the NSE trading timezone. Candle timestamps are
	// rendered in this zone regardless of the host's local time.
	exchangeTimezone = "Asia/Kolkata"

	// istOffsetSeconds is the fixed UTC+05:30 fallback used when the
	// host has no tzdata for Asia/Kolkata.
	istOffsetSeconds = 5*3600 + 30*60

	// maxResponseBytes bounds the chart response body. A year of 1m bars
	// stays well under this; anything larger is a misbehaving upstream.
	maxResponseBytes = 10 * 1024 * 1024

	// notFoundCode is the provider error code for unknown or delisted
	// symbols.
	notFoundCode = "Not Found"
)

// Client fetches candle data from the Yahoo Finance chart API.
//
// Features:
//   - Token bucket throttling before every request
//   - Response size limiting to prevent memory exhaustion
//   - Null-row skipping for halted or zero-liquidity bars
//   - Error classification: transient HTTP failures become
//     retry.HTTPError, provider rejections become entity sentinels
//
// Thread safety: Client is safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	loc       *time.Location
}

// NewClient creates a Client from cfg. Zero-valued fields fall back to
// the defaults in config.DefaultConfig, so a partially filled struct is
// usable in tests.
func NewClient(cfg config.YahooConfig) *Client {
	defaults := config.DefaultConfig().Yahoo
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaults.RateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaults.RateBurst
	}

	loc, err := time.LoadLocation(exchangeTimezone)
	if err != nil {
		loc = time.FixedZone("IST", istOffsetSeconds)
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		loc:     loc,
	}
}

// FetchCandles retrieves OHLCV bars for symbol between start and end at
// the given interval. The symbol must already be normalized (uppercase,
// exchange suffix applied); the date range and interval must already be
// validated.
//
// Error classes:
//   - retry.HTTPError for HTTP 5xx, 429, and 408 (transient, retryable)
//   - entity.ErrNoData for unknown symbols and empty ranges
//   - entity.ErrUpstream for malformed payloads and other provider errors
//   - the context error when the caller gave up while throttled
func (c *Client) FetchCandles(ctx context.Context, symbol string, start, end time.Time, interval string) (*entity.ChartData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := c.newChartRequest(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(upstreamName, 0, time.Since(began))
		return nil, fmt.Errorf("chart request for %s: %w", symbol, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	metrics.RecordUpstreamRequest(upstreamName, resp.StatusCode, time.Since(began))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read chart response for %s: %w", symbol, err)
	}
	if int64(len(body)) > maxResponseBytes {
		return nil, fmt.Errorf("%w: chart response for %s exceeds %d bytes", entity.ErrUpstream, symbol, maxResponseBytes)
	}

	if isRetryableStatus(resp.StatusCode) {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}

	var env chartEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode chart envelope for %s: %v", entity.ErrUpstream, symbol, err)
	}
	if env.Chart.Error != nil {
		return nil, chartAPIError(env.Chart.Error)
	}
	if len(env.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty chart result for %s", entity.ErrNoData, symbol)
	}

	return c.convert(env.Chart.Result[0], symbol, interval)
}

// newChartRequest builds the GET request for one chart fetch.
// period1/period2 are Unix seconds; includePrePost is disabled so only
// regular-session bars come back.
func (c *Client) newChartRequest(ctx context.Context, symbol string, start, end time.Time, interval string) (*http.Request, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", interval)
	q.Set("includePrePost", "false")

	endpoint := c.baseURL + chartPathPrefix + url.PathEscape(symbol) + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build chart request for %s: %w", symbol, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// convert turns one chart result into domain candles. Rows with a null
// open, high, low, or close are skipped; a null volume is kept as zero
// because the provider reports no volume for indices.
func (c *Client) convert(res chartResult, symbol, interval string) (*entity.ChartData, error) {
	if len(res.Timestamp) == 0 || len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no candles returned for %s", entity.ErrNoData, symbol)
	}

	quote := res.Indicators.Quote[0]
	candles := make([]entity.Candle, 0, len(res.Timestamp))
	skipped := 0
	for i, ts := range res.Timestamp {
		o, okO := at(quote.Open, i)
		h, okH := at(quote.High, i)
		l, okL := at(quote.Low, i)
		cl, okC := at(quote.Close, i)
		if !okO || !okH || !okL || !okC {
			skipped++
			continue
		}

		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}

		candles = append(candles, entity.Candle{
			Timestamp: time.Unix(ts, 0).In(c.loc),
			Open:      round2(o),
			High:      round2(h),
			Low:       round2(l),
			Close:     round2(cl),
			Volume:    volume,
		})
	}

	if skipped > 0 {
		slog.Debug("skipped null candle rows",
			slog.String("symbol", symbol),
			slog.Int("skipped", skipped),
			slog.Int("kept", len(candles)))
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: all %d candle rows for %s were null", entity.ErrNoData, len(res.Timestamp), symbol)
	}

	meta := entity.ChartMeta{
		Symbol:     res.Meta.Symbol,
		Interval:   interval,
		Currency:   res.Meta.Currency,
		Timezone:   res.Meta.ExchangeTimezoneName,
		DataPoints: len(candles),
	}
	if meta.Symbol == "" {
		meta.Symbol = symbol
	}
	if meta.Currency == "" {
		meta.Currency = "INR"
	}
	if meta.Timezone == "" {
		meta.Timezone = exchangeTimezone
	}

	return &entity.ChartData{Candles: candles, Meta: meta}, nil
}

// apiError maps a non-OK, non-retryable response to a domain error,
// preferring the provider's own error payload when one is present.
func apiError(status int, body []byte) error {
	var env chartEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Chart.Error != nil {
		return chartAPIError(env.Chart.Error)
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: HTTP 404", entity.ErrNoData)
	}
	return fmt.Errorf("%w: HTTP %d", entity.ErrUpstream, status)
}

// chartAPIError maps the provider's error payload to a domain error.
// "Not Found" means the symbol does not exist or is delisted; everything
// else is an upstream-side failure.
func chartAPIError(apiErr *chartError) error {
	if apiErr.Code == notFoundCode {
		return fmt.Errorf("%w: %s", entity.ErrNoData, apiErr.Description)
	}
	return fmt.Errorf("%w: %s: %s", entity.ErrUpstream, apiErr.Code, apiErr.Description)
}

// isRetryableStatus reports whether the HTTP status indicates a transient
// failure worth repeating.
func isRetryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}

// round2 rounds to two decimals, the NSE paisa tick size.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
