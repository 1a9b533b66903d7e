package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// apiResponse is the common envelope of open platform responses.
type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// APIError is returned when the open platform answers with a non-zero code
// or an unexpected HTTP status.
type APIError struct {
	Status int
	Code   int
	Msg    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("lark: api error %d: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("lark: unexpected status %d: %s", e.Status, e.Msg)
}

func postJSON(ctx context.Context, client *http.Client, url, bearer string, payload any) (*http.Response, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("lark: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("lark: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("lark: post %s: %w", redact(url), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp, nil, fmt.Errorf("lark: read response: %w", err)
	}
	return resp, raw, nil
}

func checkStatus(resp *http.Response, raw []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &APIError{Status: resp.StatusCode, Msg: strings.TrimSpace(string(raw))}
}

// redact strips the query string so webhook tokens do not end up in logs.
func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}
