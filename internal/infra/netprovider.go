package infra

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPNetProvider implements domain.NetProvider over a retrying HTTP
// client, used by the CRL updater to fetch distribution points.
type HTTPNetProvider struct {
	client *retryablehttp.Client
}

// NewHTTPNetProvider builds a NetProvider whose retry logging goes
// through the process slog default logger instead of stdlib log.
func NewHTTPNetProvider() *HTTPNetProvider {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = slogRetryLogger{}
	return &HTTPNetProvider{client: client}
}

// Fetch issues a GET against url, cancellable via ctx, and returns the
// full response body. A non-2xx status is reported as an error.
func (p *HTTPNetProvider) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body from %s: %w", url, err)
	}
	return body, nil
}

type slogRetryLogger struct{}

func (slogRetryLogger) Printf(format string, args ...interface{}) {
	slog.Debug(fmt.Sprintf(format, args...))
}
