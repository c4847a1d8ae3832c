package entity

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		want   string
	}{
		{
			name:   "bare equity symbol gets NSE suffix",
			symbol: "RELIANCE",
			want:   "RELIANCE.NS",
		},
		{
			name:   "lowercase equity symbol",
			symbol: "reliance",
			want:   "RELIANCE.NS",
		},
		{
			name:   "already suffixed symbol unchanged",
			symbol: "RELIANCE.NS",
			want:   "RELIANCE.NS",
		},
		{
			name:   "index symbol unchanged",
			symbol: "^NSEI",
			want:   "^NSEI",
		},
		{
			name:   "lowercase index symbol uppercased only",
			symbol: "^nsei",
			want:   "^NSEI",
		},
		{
			name:   "bank nifty index",
			symbol: "^NSEBANK",
			want:   "^NSEBANK",
		},
		{
			name:   "BSE suffix preserved",
			symbol: "RELIANCE.BO",
			want:   "RELIANCE.BO",
		},
		{
			name:   "symbol with ampersand",
			symbol: "M&M",
			want:   "M&M.NS",
		},
		{
			name:   "surrounding whitespace trimmed",
			symbol: "  tcs  ",
			want:   "TCS.NS",
		},
		{
			name:   "empty symbol stays empty",
			symbol: "",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSymbol(tt.symbol); got != tt.want {
				t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.symbol, got, tt.want)
			}
		})
	}
}

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		wantErr bool
	}{
		{
			name:    "valid equity symbol",
			symbol:  "RELIANCE",
			wantErr: false,
		},
		{
			name:    "valid lowercase symbol",
			symbol:  "infy",
			wantErr: false,
		},
		{
			name:    "valid index symbol",
			symbol:  "^NSEI",
			wantErr: false,
		},
		{
			name:    "valid suffixed symbol",
			symbol:  "TCS.NS",
			wantErr: false,
		},
		{
			name:    "valid symbol with ampersand",
			symbol:  "M&M",
			wantErr: false,
		},
		{
			name:    "valid symbol with hyphen",
			symbol:  "BAJAJ-AUTO",
			wantErr: false,
		},
		{
			name:    "empty symbol",
			symbol:  "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			symbol:  "   ",
			wantErr: true,
		},
		{
			name:    "underscore is invalid",
			symbol:  "INVALID_SYMBOL",
			wantErr: true,
		},
		{
			name:    "embedded space is invalid",
			symbol:  "RELIANCE INDUSTRIES",
			wantErr: true,
		},
		{
			name:    "leading dot is invalid",
			symbol:  ".NS",
			wantErr: true,
		},
		{
			name:    "caret in the middle is invalid",
			symbol:  "REL^IANCE",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSymbol(tt.symbol)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSymbol(%q) error = %v, wantErr %v", tt.symbol, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ValidateSymbol(%q) should match ErrInvalidInput, got %v", tt.symbol, err)
			}
		})
	}
}

func TestValidateDateRange(t *testing.T) {
	tests := []struct {
		name      string
		startDate string
		endDate   string
		wantErr   bool
	}{
		{
			name:      "valid range",
			startDate: "2024-01-01",
			endDate:   "2024-01-31",
			wantErr:   false,
		},
		{
			name:      "single day range",
			startDate: "2024-01-01",
			endDate:   "2024-01-02",
			wantErr:   false,
		},
		{
			name:      "start equals end",
			startDate: "2024-01-01",
			endDate:   "2024-01-01",
			wantErr:   true,
		},
		{
			name:      "start after end",
			startDate: "2024-02-01",
			endDate:   "2024-01-01",
			wantErr:   true,
		},
		{
			name:      "malformed start date",
			startDate: "01-01-2024",
			endDate:   "2024-01-31",
			wantErr:   true,
		},
		{
			name:      "malformed end date",
			startDate: "2024-01-01",
			endDate:   "31/01/2024",
			wantErr:   true,
		},
		{
			name:      "empty start date",
			startDate: "",
			endDate:   "2024-01-31",
			wantErr:   true,
		},
		{
			name:      "textual date rejected",
			startDate: "yesterday",
			endDate:   "2024-01-31",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ValidateDateRange(tt.startDate, tt.endDate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateDateRange(%q, %q) error = %v, wantErr %v",
					tt.startDate, tt.endDate, err, tt.wantErr)
			}
			if err == nil && !start.Before(end) {
				t.Errorf("parsed range not ordered: start %v, end %v", start, end)
			}
		})
	}
}

func TestValidateDateRange_ParsedValues(t *testing.T) {
	start, end, err := ValidateDateRange("2024-03-01", "2024-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
}

func TestValidateInterval(t *testing.T) {
	for _, iv := range ValidIntervals {
		if err := ValidateInterval(iv); err != nil {
			t.Errorf("ValidateInterval(%q) = %v, want nil", iv, err)
		}
	}

	invalid := []string{"", "2m", "1D", "daily", "60m", "1y"}
	for _, iv := range invalid {
		if err := ValidateInterval(iv); err == nil {
			t.Errorf("ValidateInterval(%q) = nil, want error", iv)
		}
	}
}

func TestIsIntradayInterval(t *testing.T) {
	tests := []struct {
		interval string
		want     bool
	}{
		{"1m", true},
		{"5m", true},
		{"15m", true},
		{"30m", true},
		{"1h", true},
		{"1d", false},
		{"1wk", false},
		{"1mo", false},
	}

	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			if got := IsIntradayInterval(tt.interval); got != tt.want {
				t.Errorf("IsIntradayInterval(%q) = %v, want %v", tt.interval, got, tt.want)
			}
		})
	}
}

func TestValidateIndicator(t *testing.T) {
	valid := []string{"RSI", "rsi", "Macd", "BBANDS", "sma", "EMA", "atr", " rsi "}
	for _, name := range valid {
		if err := ValidateIndicator(name); err != nil {
			t.Errorf("ValidateIndicator(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "STOCH", "VWAP", "RSI14"}
	for _, name := range invalid {
		if err := ValidateIndicator(name); err == nil {
			t.Errorf("ValidateIndicator(%q) = nil, want error", name)
		}
	}
}

func TestValidateQueryType(t *testing.T) {
	if err := ValidateQueryType(QueryTypeCompany); err != nil {
		t.Errorf("company should be valid: %v", err)
	}
	if err := ValidateQueryType(QueryTypeMarket); err != nil {
		t.Errorf("market should be valid: %v", err)
	}
	for _, qt := range []string{"", "sector", "COMPANY", "latest"} {
		if err := ValidateQueryType(qt); err == nil {
			t.Errorf("ValidateQueryType(%q) = nil, want error", qt)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{
			name:    "valid https URL",
			url:     "https://example.com/feed",
			wantErr: false,
		},
		{
			name:    "valid http URL",
			url:     "http://example.com/feed",
			wantErr: false,
		},
		{
			name:    "valid URL with query",
			url:     "https://example.com/rss?s=RELIANCE.NS&region=IN",
			wantErr: false,
		},
		{
			name:    "empty URL",
			url:     "",
			wantErr: true,
		},
		{
			name:    "invalid scheme - ftp",
			url:     "ftp://example.com/feed",
			wantErr: true,
		},
		{
			name:    "invalid scheme - file",
			url:     "file:///etc/passwd",
			wantErr: true,
		},
		{
			name:    "no host",
			url:     "https://",
			wantErr: true,
		},
		{
			name:    "no scheme",
			url:     "example.com",
			wantErr: true,
		},
		{
			name:    "URL exceeding maximum length",
			url:     "https://example.com/" + string(make([]byte, 2050)),
			wantErr: true,
		},
		{
			name:    "localhost URL (private IP)",
			url:     "http://localhost/feed",
			wantErr: true,
		},
		{
			name:    "127.0.0.1 URL (loopback)",
			url:     "http://127.0.0.1/feed",
			wantErr: true,
		},
		{
			name:    "private IP 10.x.x.x",
			url:     "http://10.0.0.1/feed",
			wantErr: true,
		},
		{
			name:    "private IP 192.168.x.x",
			url:     "http://192.168.1.1/feed",
			wantErr: true,
		},
		{
			name:    "link-local 169.254.x.x (cloud metadata)",
			url:     "http://169.254.169.254/latest/meta-data",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		name      string
		ip        string
		isPrivate bool
	}{
		{
			name:      "IPv4 loopback 127.0.0.1",
			ip:        "127.0.0.1",
			isPrivate: true,
		},
		{
			name:      "IPv6 loopback ::1",
			ip:        "::1",
			isPrivate: true,
		},
		{
			name:      "IPv4 link-local 169.254.169.254 (AWS metadata)",
			ip:        "169.254.169.254",
			isPrivate: true,
		},
		{
			name:      "IPv6 link-local fe80::1",
			ip:        "fe80::1",
			isPrivate: true,
		},
		{
			name:      "private 10.0.0.0/8",
			ip:        "10.123.45.67",
			isPrivate: true,
		},
		{
			name:      "private 172.16.0.0/12",
			ip:        "172.20.10.5",
			isPrivate: true,
		},
		{
			name:      "private 192.168.0.0/16",
			ip:        "192.168.1.1",
			isPrivate: true,
		},
		{
			name:      "public IP - Google DNS",
			ip:        "8.8.8.8",
			isPrivate: false,
		},
		{
			name:      "public IP - example.com range",
			ip:        "93.184.216.34",
			isPrivate: false,
		},
		{
			name:      "just before 10.0.0.0/8",
			ip:        "9.255.255.255",
			isPrivate: false,
		},
		{
			name:      "just after 172.16.0.0/12",
			ip:        "172.32.0.0",
			isPrivate: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP: %s", tt.ip)
			}

			got := isPrivateIP(ip)
			if got != tt.isPrivate {
				t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.isPrivate)
			}
		})
	}
}
