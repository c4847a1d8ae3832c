package entity

import "time"

// News query types accepted by the market news tool.
const (
	// QueryTypeCompany filters news to a single listed company.
	QueryTypeCompany = "company"

	// QueryTypeMarket returns market-wide headlines.
	QueryTypeMarket = "market"
)

// NewsArticle represents one market news item sourced from a feed.
// Content is empty unless the caller asked for full-text enrichment; when
// extraction fails the feed summary stands in, so Content is never worse
// than Summary.
type NewsArticle struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content,omitempty"`
}
