package feeds

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// JokeFeed returns the plain-text "moyu" bulletin.
type JokeFeed struct {
	url    string
	client *http.Client
}

// NewJokeFeed constructs a JokeFeed reading from url.
func NewJokeFeed(url string, client *http.Client) *JokeFeed {
	return &JokeFeed{url: url, client: defaultClient(client)}
}

// Fetch returns the trimmed body.
func (f *JokeFeed) Fetch(ctx context.Context) (string, error) {
	if f.url == "" {
		return "", errors.New("feeds: moyu url is not configured")
	}
	body, err := fetch(ctx, f.client, UpstreamMoyu, f.url)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
