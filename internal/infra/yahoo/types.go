package yahoo

// Wire types for the v8 finance chart envelope. Quote arrays use pointer
// elements so null entries (halted sessions, zero-liquidity bars) decode
// as nil and can be skipped during conversion instead of producing
// zero-priced candles.

type chartEnvelope struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       resultMeta `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators struct {
		Quote []quoteBlock `json:"quote"`
	} `json:"indicators"`
}

// resultMeta carries the subset of the provider metadata the conversion
// uses. The real payload has two dozen more fields; unknown keys are
// ignored by the decoder.
type resultMeta struct {
	Currency             string  `json:"currency"`
	Symbol               string  `json:"symbol"`
	ExchangeName         string  `json:"exchangeName"`
	InstrumentType       string  `json:"instrumentType"`
	ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
}

type quoteBlock struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// chartError is the provider's own error payload, returned with both 200
// and non-200 statuses. Code "Not Found" covers unknown and delisted
// symbols.
type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
