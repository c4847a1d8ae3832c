// Command diagnose_upstream probes every upstream the server depends on:
// the Yahoo Finance chart API for a sample symbol, the company headline
// feed for that symbol, and each market-wide feed in the catalog. It
// prints a JSON diagnostic table to stdout and a short summary to stderr.
//
// Usage:
//
//	go run scripts/diagnose_upstream.go -symbol RELIANCE.NS -feeds config/feeds.yaml
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/mmcdole/gofeed"

	"trading-mcp/internal/config"
)

// Diagnostic is the probe result for a single upstream endpoint.
type Diagnostic struct {
	Kind          string `json:"kind"` // "chart", "company_feed", "market_feed"
	Name          string `json:"name"`
	URL           string `json:"url"`
	Status        string `json:"status"` // "OK", "HTTP_ERROR", "PARSE_ERROR", "EMPTY", "TIMEOUT", "REQUEST_ERROR"
	HTTPCode      int    `json:"http_code"`
	ItemCount     int    `json:"item_count"`
	Latest        string `json:"latest,omitempty"`
	FeedType      string `json:"feed_type,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	ResponseTime  int64  `json:"response_time_ms"`
	ContentLength int64  `json:"content_length"`
}

// chartProbe is the minimal slice of the chart response the probe needs.
type chartProbe struct {
	Chart struct {
		Result []struct {
			Timestamp []int64 `json:"timestamp"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func main() {
	symbol := flag.String("symbol", "RELIANCE.NS", "sample symbol for the chart and company feed probes")
	feedsFile := flag.String("feeds", os.Getenv("NEWS_FEEDS_FILE"), "path to the feeds catalog (empty uses built-in defaults)")
	timeout := flag.Duration("timeout", 30*time.Second, "per-probe timeout")
	flag.Parse()

	feeds, err := config.LoadFeedsConfig(*feedsFile)
	if err != nil {
		log.Fatalf("Failed to load feeds catalog: %v", err)
	}

	yc := config.DefaultConfig().Yahoo
	if base := os.Getenv("YAHOO_BASE_URL"); base != "" {
		yc.BaseURL = base
	}

	probes := len(feeds.MarketFeeds()) + 2
	log.Printf("Probing %d upstream endpoints...\n", probes)

	diagnostics := make([]Diagnostic, 0, probes)

	log.Printf("[1/%d] Chart API: %s", probes, *symbol)
	diagnostics = append(diagnostics, diagnoseChart(yc, *symbol, *timeout))

	log.Printf("[2/%d] Company feed: %s", probes, *symbol)
	diag := diagnoseFeed(*symbol, feeds.CompanyFeedURL(*symbol), *timeout)
	diag.Kind = "company_feed"
	diagnostics = append(diagnostics, diag)

	for i, feed := range feeds.MarketFeeds() {
		// Rate limiting to be nice to servers
		time.Sleep(500 * time.Millisecond)

		log.Printf("[%d/%d] Market feed: %s", i+3, probes, feed.Name)
		diag := diagnoseFeed(feed.Name, feed.URL, *timeout)
		diag.Kind = "market_feed"
		diagnostics = append(diagnostics, diag)
	}

	printSummary(diagnostics)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(diagnostics); err != nil {
		log.Fatalf("Failed to write diagnostic report: %v", err)
	}
}

func diagnoseChart(yc config.YahooConfig, symbol string, timeout time.Duration) Diagnostic {
	probeURL := yc.BaseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?interval=1d&range=5d"
	diag := Diagnostic{
		Kind: "chart",
		Name: symbol,
		URL:  probeURL,
	}

	body, ok := fetchBody(&diag, probeURL, yc.UserAgent, "application/json", timeout)
	if !ok {
		return diag
	}

	var probe chartProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		diag.Status = "PARSE_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}
	if probe.Chart.Error != nil {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = fmt.Sprintf("%s: %s", probe.Chart.Error.Code, probe.Chart.Error.Description)
		return diag
	}
	if len(probe.Chart.Result) == 0 || len(probe.Chart.Result[0].Timestamp) == 0 {
		diag.Status = "EMPTY"
		diag.ErrorMessage = "Chart response has no candles"
		return diag
	}

	timestamps := probe.Chart.Result[0].Timestamp
	diag.ItemCount = len(timestamps)
	diag.Latest = time.Unix(timestamps[len(timestamps)-1], 0).UTC().Format(time.RFC3339)
	diag.Status = "OK"
	return diag
}

func diagnoseFeed(name, feedURL string, timeout time.Duration) Diagnostic {
	diag := Diagnostic{
		Name: name,
		URL:  feedURL,
	}

	body, ok := fetchBody(&diag, feedURL, "trading-mcp-diagnostic/1.0", "application/rss+xml, application/atom+xml, application/xml, text/xml", timeout)
	if !ok {
		return diag
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		diag.Status = "PARSE_ERROR"
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		diag.ErrorMessage = fmt.Sprintf("%v. Content preview: %s", err, preview)
		return diag
	}

	diag.FeedType = feed.FeedType
	diag.ItemCount = len(feed.Items)
	if diag.ItemCount == 0 {
		diag.Status = "EMPTY"
		diag.ErrorMessage = "Feed has no items"
		return diag
	}

	if feed.Items[0].PublishedParsed != nil {
		diag.Latest = feed.Items[0].PublishedParsed.UTC().Format(time.RFC3339)
	} else {
		diag.Latest = feed.Items[0].Published
	}
	diag.Status = "OK"
	return diag
}

// fetchBody performs the GET shared by both probes, filling the timing,
// HTTP, and redirect fields of diag. It returns false when diag already
// holds a terminal error status.
func fetchBody(diag *Diagnostic, rawURL, userAgent, accept string, timeout time.Duration) ([]byte, bool) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		diag.Status = "REQUEST_ERROR"
		diag.ErrorMessage = err.Error()
		return nil, false
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	diag.ResponseTime = time.Since(startTime).Milliseconds()

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			diag.Status = "TIMEOUT"
			diag.ErrorMessage = fmt.Sprintf("Request timeout after %v", timeout)
		} else {
			diag.Status = "HTTP_ERROR"
			diag.ErrorMessage = err.Error()
		}
		return nil, false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	diag.HTTPCode = resp.StatusCode
	diag.ContentLength = resp.ContentLength
	if resp.Request.URL.String() != rawURL {
		diag.RedirectURL = resp.Request.URL.String()
	}

	if resp.StatusCode != http.StatusOK {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		diag.Status = "READ_ERROR"
		diag.ErrorMessage = err.Error()
		return nil, false
	}
	return body, true
}

func printSummary(diagnostics []Diagnostic) {
	statusCount := make(map[string]int)
	var okCount int
	for _, d := range diagnostics {
		statusCount[d.Status]++
		if d.Status == "OK" {
			okCount++
		}
	}

	log.Printf("Summary: %d/%d endpoints healthy", okCount, len(diagnostics))
	for status, count := range statusCount {
		if status != "OK" {
			log.Printf("  %s: %d", status, count)
		}
	}
	for _, d := range diagnostics {
		if d.RedirectURL != "" {
			log.Printf("  Redirect: %s -> %s", d.URL, d.RedirectURL)
		}
	}
}
