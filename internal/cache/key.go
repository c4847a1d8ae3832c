package cache

import (
	"strconv"
	"strings"
)

// ChartKey builds the cache key for a chart-data request. The layout matches
// the provider's historical key format, SYMBOL_START_END_INTERVAL, so a chart
// fetch and an indicator computation over the same range share one entry.
// The symbol must already be normalized (see entity.NormalizeSymbol).
func ChartKey(symbol, startDate, endDate, interval string) string {
	var b strings.Builder
	b.Grow(len(symbol) + len(startDate) + len(endDate) + len(interval) + 3)
	b.WriteString(symbol)
	b.WriteByte('_')
	b.WriteString(startDate)
	b.WriteByte('_')
	b.WriteString(endDate)
	b.WriteByte('_')
	b.WriteString(interval)
	return b.String()
}

// NewsKey builds the cache key for a news lookup. The "news_" prefix keeps
// news entries out of the chart key space (symbols are uppercase, so the two
// never collide). Enriched and summary-only results are distinct entries;
// a cached summary-only list must never serve a full-content request.
func NewsKey(queryType, query string, limit int, includeContent bool) string {
	var b strings.Builder
	b.WriteString("news_")
	b.WriteString(queryType)
	b.WriteByte('_')
	b.WriteString(query)
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(limit))
	if includeContent {
		b.WriteString("_full")
	}
	return b.String()
}
