package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"trading-mcp/internal/observability/metrics"
	"trading-mcp/internal/resilience/circuitbreaker"
	"trading-mcp/internal/resilience/retry"
)

// articleUserAgent identifies enrichment requests to publishers.
const articleUserAgent = "trading-mcp/1.0"

// ReadabilityFetcher extracts clean article text from news pages using
// the Mozilla Readability algorithm, with an og:description fallback for
// pages readability cannot parse.
//
// Features:
//   - SSRF prevention via URL and redirect validation
//   - Circuit breaker around the page fetch
//   - Selective retry: only transient failures are repeated
//   - Size limiting and timeout protection
//
// Thread safety: ReadabilityFetcher is safe for concurrent use.
type ReadabilityFetcher struct {
	client   *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg retry.Config
	config   ContentFetchConfig
}

// NewReadabilityFetcher creates a ReadabilityFetcher with the given
// configuration. The HTTP client enforces TLS 1.2+ and re-validates
// every redirect target against the SSRF rules.
func NewReadabilityFetcher(config ContentFetchConfig) *ReadabilityFetcher {
	f := &ReadabilityFetcher{
		breaker:  circuitbreaker.New(circuitbreaker.ArticleFetchConfig()),
		retryCfg: retry.ArticleFetchConfig(),
		config:   config,
	}

	f.client = &http.Client{
		// Overall guard; the per-request timeout from config is tighter.
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target rejected: %w", err)
			}
			return nil
		},
	}
	return f
}

// FetchContent fetches the page at urlStr and extracts its article text.
//
// The URL is validated first, then the fetch runs through the circuit
// breaker. Transient failures (network timeouts, HTTP 5xx/429/408) are
// retried; everything else, including an open breaker, stops
// immediately. Callers treat any error as a cue to keep the feed
// summary.
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	began := time.Now()
	var content string
	var permanent error

	retryErr := retry.WithBackoff(ctx, f.retryCfg, func() error {
		result, err := f.breaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, urlStr)
		})
		if err != nil {
			if errors.Is(err, circuitbreaker.ErrOpen) {
				slog.Warn("article fetch rejected by open circuit",
					slog.String("url", urlStr),
					slog.String("state", f.breaker.State().String()))
				permanent = err
				return nil
			}
			if !retry.IsRetryable(err) {
				permanent = err
				return nil
			}
			return err
		}
		permanent = nil
		content = result.(string)
		return nil
	})

	if retryErr != nil {
		metrics.RecordContentFetchFailed(time.Since(began))
		return "", retryErr
	}
	if permanent != nil {
		metrics.RecordContentFetchFailed(time.Since(began))
		return "", permanent
	}

	metrics.RecordContentFetchSuccess(time.Since(began), len(content))
	return content, nil
}

// doFetch performs one HTTP request and extraction attempt.
func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", articleUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: request exceeded %v", ErrTimeout, f.config.Timeout)
		}
		// Surface redirect validation failures without the url.Error wrap.
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Err != nil {
			return "", urlErr.Err
		}
		return "", fmt.Errorf("article request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 ||
			resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode == http.StatusRequestTimeout {
			return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return "", fmt.Errorf("%w: HTTP %d", ErrExtractFailed, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, f.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read article body: %w", err)
	}
	if int64(len(htmlBytes)) > f.config.MaxBodySize {
		return "", fmt.Errorf("%w: body exceeds %d bytes", ErrBodyTooLarge, f.config.MaxBodySize)
	}

	// Redirects may have moved us; readability resolves relative links
	// against the final URL.
	finalURL, err := url.Parse(urlStr)
	if err != nil {
		finalURL = nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	return f.extract(htmlBytes, finalURL, urlStr)
}

// extract pulls article text out of the fetched page. Readability runs
// first; when it yields nothing, the og:description meta tag stands in,
// which rescues most paywalled and script-rendered pages.
func (f *ReadabilityFetcher) extract(htmlBytes []byte, pageURL *url.URL, urlStr string) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(htmlBytes), pageURL)
	if err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return text, nil
		}
	}

	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if docErr == nil {
		og, ok := doc.Find(`meta[property="og:description"]`).Attr("content")
		if ok {
			if og = strings.TrimSpace(og); og != "" {
				slog.Debug("using og:description fallback",
					slog.String("url", urlStr),
					slog.Int("length", len(og)))
				return og, nil
			}
		}
	}

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	return "", fmt.Errorf("%w: no readable content found", ErrExtractFailed)
}
