// Package crawl implements the source crawlers: one independent polling
// unit per configured source, feeding extracted candidates to the crawler
// controller.
package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// userAgent identifies the crawler to origin servers.
const userAgent = "newsward-ingest/1.0"

// Fetcher fetches the raw content of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher implements Fetcher using net/http with a bounded timeout, so
// a hung fetch cannot starve a crawler's schedule indefinitely.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the given overall timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch performs an HTTP GET and returns the response body as a string.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("fetcher new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, doErr := f.client.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("fetcher do request: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetcher: unexpected status %d for %s", resp.StatusCode, url)
	}

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", fmt.Errorf("fetcher read body: %w", readErr)
	}

	return string(raw), nil
}
