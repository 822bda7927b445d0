package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
)

const (
	UserAgent = "venue-events/1.0 (github.com/proprogresja/venue-events)"
	Timeout   = 30 * time.Second
)

// Extractor scrapes one venue. Failures are reported in the result, never returned.
type Extractor interface {
	ID() string
	Name() string
	Scrape(ctx context.Context) *event.ScraperResult
}

// Fetcher retrieves the markup of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPFetcher fetches pages with a plain GET
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher with the default timeout and user agent
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: Timeout,
		},
		userAgent: UserAgent,
	}
}

// Fetch performs the request and returns the body on a 200 response
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}
