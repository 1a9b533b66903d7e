package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// RandomFeed returns a random entry from the awsl API.
type RandomFeed struct {
	baseURL string
	client  *http.Client
}

// NewRandomFeed constructs a RandomFeed against baseURL.
func NewRandomFeed(baseURL string, client *http.Client) *RandomFeed {
	return &RandomFeed{baseURL: baseURL, client: defaultClient(client)}
}

// Fetch decodes the JSON answer of /v2/random. A JSON string is returned
// unquoted; any other value is returned in its compact JSON form.
func (f *RandomFeed) Fetch(ctx context.Context) (string, error) {
	if f.baseURL == "" {
		return "", errors.New("feeds: awsl api url is not configured")
	}
	body, err := fetch(ctx, f.client, UpstreamAwsl, joinURL(f.baseURL, "/v2/random"))
	if err != nil {
		return "", err
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return "", fmt.Errorf("feeds: decode awsl response: %w", err)
	}
	if s, ok := value.(string); ok {
		return s, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return "", fmt.Errorf("feeds: encode awsl response: %w", err)
	}
	return buf.String(), nil
}
