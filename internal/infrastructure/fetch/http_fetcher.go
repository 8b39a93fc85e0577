package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultClientTimeout caps one whole download, including reading the body.
// Per-plugin deadlines are enforced by the orchestrator through the context;
// this is only a backstop against a host that trickles bytes forever.
const DefaultClientTimeout = 5 * time.Minute

// HTTPFetcher downloads plugin archives. Redirects are followed because the
// hosting providers commonly redirect tarball requests.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher identifying itself as strand/<version>.
func NewHTTPFetcher(version string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: DefaultClientTimeout,
		},
		userAgent: fmt.Sprintf("strand/%s", version),
	}
}

// Fetch issues a single GET and returns the response body as a stream. Any
// connection failure, DNS failure, or non-2xx response is a fetch error.
// The caller owns the returned body and must close it.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed with status %d for %s", resp.StatusCode, url)
	}

	return resp.Body, nil
}
