package fetcher

import "errors"

// Sentinel errors for article content fetching. None of them are
// retryable; a caller that hits one falls back to the feed summary.
var (
	// ErrInvalidURL indicates the URL could not be parsed or uses a
	// scheme other than http/https.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP indicates the URL resolves to a private, loopback, or
	// link-local address.
	ErrPrivateIP = errors.New("url resolves to private address")

	// ErrTooManyRedirects indicates the redirect chain exceeded the
	// configured limit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the configured
	// size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the per-request timeout elapsed.
	ErrTimeout = errors.New("content fetch timed out")

	// ErrExtractFailed indicates neither readability nor the
	// og:description fallback produced usable text.
	ErrExtractFailed = errors.New("content extraction failed")
)
