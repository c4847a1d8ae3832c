package entity

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

// dateLayout is the wire format for start_date and end_date parameters.
const dateLayout = "2006-01-02"

// symbolPattern matches an exchange symbol after uppercasing: an optional
// index caret, then alphanumerics with '.', '&', or '-' allowed as
// separators. Underscores are not valid in NSE symbols.
var symbolPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.&-]*$`)

// ValidIntervals lists the candle intervals accepted by the chart and
// indicator tools, smallest to largest.
var ValidIntervals = []string{"1m", "5m", "15m", "30m", "1h", "1d", "1wk", "1mo"}

var intradayIntervals = map[string]bool{
	"1m": true, "5m": true, "15m": true, "30m": true, "1h": true,
}

// NormalizeSymbol canonicalizes a user-supplied symbol: whitespace trimmed,
// uppercased, and bare equity symbols suffixed with the NSE exchange code.
// Index symbols (caret-prefixed, e.g. ^NSEI) and symbols that already carry
// an exchange suffix pass through unchanged.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || strings.HasPrefix(s, "^") {
		return s
	}
	if !strings.Contains(s, ".") {
		s += ".NS"
	}
	return s
}

// ValidateSymbol checks that a symbol is present and uses only characters
// valid in exchange tickers. Validation runs on the uppercased input,
// before normalization.
func ValidateSymbol(symbol string) error {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return &ValidationError{Field: "symbol", Message: "symbol is required"}
	}
	if !symbolPattern.MatchString(s) {
		return &ValidationError{
			Field:   "symbol",
			Message: fmt.Sprintf("symbol %q contains invalid characters", symbol),
		}
	}
	return nil
}

// ValidateDateRange parses start and end dates in YYYY-MM-DD form and
// checks that the range is well-ordered. The start date must be strictly
// before the end date.
func ValidateDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{
			Field:   "start_date",
			Message: "start_date must use YYYY-MM-DD format",
		}
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{
			Field:   "end_date",
			Message: "end_date must use YYYY-MM-DD format",
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, &ValidationError{
			Field:   "date_range",
			Message: "start_date must be before end_date",
		}
	}
	return start, end, nil
}

// ValidateInterval checks the interval against the accepted whitelist.
func ValidateInterval(interval string) error {
	for _, iv := range ValidIntervals {
		if iv == interval {
			return nil
		}
	}
	return &ValidationError{
		Field:   "interval",
		Message: fmt.Sprintf("interval must be one of: %s", strings.Join(ValidIntervals, ", ")),
	}
}

// IsIntradayInterval reports whether the interval resolves below one day.
// Intraday series change while the market is open and get the short cache TTL.
func IsIntradayInterval(interval string) bool {
	return intradayIntervals[interval]
}

// ValidateIndicator checks an indicator name against the supported set.
// Matching is case-insensitive.
func ValidateIndicator(indicator string) error {
	name := strings.ToUpper(strings.TrimSpace(indicator))
	if name == "" {
		return &ValidationError{Field: "indicator", Message: "indicator is required"}
	}
	if !validIndicators[name] {
		return &ValidationError{
			Field:   "indicator",
			Message: fmt.Sprintf("unsupported indicator %q", indicator),
		}
	}
	return nil
}

// NormalizeIndicator returns the canonical uppercase indicator name.
func NormalizeIndicator(indicator string) string {
	return strings.ToUpper(strings.TrimSpace(indicator))
}

// ValidateQueryType checks the news query type.
func ValidateQueryType(queryType string) error {
	switch queryType {
	case QueryTypeCompany, QueryTypeMarket:
		return nil
	default:
		return &ValidationError{
			Field:   "query_type",
			Message: fmt.Sprintf("query_type must be %q or %q", QueryTypeCompany, QueryTypeMarket),
		}
	}
}

// ValidateURL validates the format and safety of a URL.
// It checks that the URL is well-formed, uses HTTP/HTTPS scheme, and has a valid host.
// It also blocks private IP addresses to prevent SSRF attacks.
// Returns a ValidationError if the URL is invalid or empty.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	// DoS protection: enforce maximum URL length
	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	// SSRF対策: プライベートIPアドレスをブロック
	host := parsedURL.Hostname()
	ips, err := net.LookupIP(host)
	if err == nil && len(ips) > 0 {
		for _, ip := range ips {
			if isPrivateIP(ip) {
				return &ValidationError{
					Field:   "url",
					Message: "url cannot point to private network",
				}
			}
		}
	}

	return nil
}

// isPrivateIP checks if an IP address is in a private or restricted range.
// This prevents SSRF attacks by blocking access to:
// - localhost (127.0.0.0/8, ::1)
// - link-local addresses (169.254.0.0/16, fe80::/10)
// - private networks (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
// - cloud metadata endpoints (169.254.169.254)
func isPrivateIP(ip net.IP) bool {
	// localhost
	if ip.IsLoopback() {
		return true
	}

	// link-local
	if ip.IsLinkLocalUnicast() {
		return true
	}

	// Private IPv4 ranges
	privateIPv4Ranges := []string{
		"10.0.0.0/8",     // Private network
		"172.16.0.0/12",  // Private network
		"192.168.0.0/16", // Private network
		"169.254.0.0/16", // Link-local (includes cloud metadata)
	}

	for _, cidr := range privateIPv4Ranges {
		_, subnet, _ := net.ParseCIDR(cidr)
		if subnet.Contains(ip) {
			return true
		}
	}

	return false
}
