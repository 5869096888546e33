package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-cleanhttp"
)

// Fetcher opens remote documents. Errors wrapped with backoff.Permanent are
// not retried.
type Fetcher interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPFetcher is the production Fetcher backed by a pooled HTTP client.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher with a pooled, non-shared transport.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client:    cleanhttp.DefaultPooledClient(),
		userAgent: "gamepipe",
	}
}

// Open issues a GET request. 5xx and 429 responses are retryable; any other
// non-200 status is permanent.
func (f *HTTPFetcher) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("building request for %s: %w", url, err))
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		statusErr := &StatusError{URL: url, Status: resp.Status, Code: resp.StatusCode}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}
	return resp.Body, nil
}
