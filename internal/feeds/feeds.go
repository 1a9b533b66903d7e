// Package feeds fetches the third-party data rendered into chat replies and
// broadcast cards.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charlesng35/larkrelay/pkg/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Upstream labels used in metrics.
const (
	UpstreamMoyu  = "moyu"
	UpstreamAwsl  = "awsl"
	UpstreamStock = "stock"
)

// StatusError reports a non-2xx answer from a feed.
type StatusError struct {
	Upstream   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feeds: %s returned status %d", e.Upstream, e.StatusCode)
}

func defaultClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: defaultTimeout}
}

func fetch(ctx context.Context, client *http.Client, upstream, url string) (body []byte, err error) {
	defer func() {
		metrics.UpstreamRequests.WithLabelValues(upstream, metrics.Result(err)).Inc()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("feeds: build %s request: %w", upstream, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feeds: fetch %s: %w", upstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{Upstream: upstream, StatusCode: resp.StatusCode}
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("feeds: read %s body: %w", upstream, err)
	}
	return body, nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
