package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Client posts replies through the open platform messaging API.
type Client struct {
	baseURL string
	tokens  TokenProvider
	opts    options
}

// NewClient constructs a Client. An empty baseURL falls back to DefaultBaseURL.
func NewClient(baseURL string, tokens TokenProvider, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("lark: client requires a token provider")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		opts:    buildOptions(opts),
	}, nil
}

type replyRequest struct {
	MsgType string `json:"msg_type"`
	Content string `json:"content"`
}

// ReplyMessage answers messageID with an interactive card.
func (c *Client) ReplyMessage(ctx context.Context, messageID string, card Card) error {
	if strings.TrimSpace(messageID) == "" {
		return errors.New("lark: message id is required")
	}

	content, err := card.JSONString()
	if err != nil {
		return fmt.Errorf("lark: encode card: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("lark: obtain access token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/open-apis/im/v1/messages/%s/reply", c.baseURL, url.PathEscape(messageID))
	resp, raw, err := postJSON(ctx, c.opts.httpClient, endpoint, token, replyRequest{
		MsgType: "interactive",
		Content: content,
	})
	if err != nil {
		return err
	}
	if err := checkStatus(resp, raw); err != nil {
		return err
	}

	var out apiResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("lark: decode reply response: %w", err)
		}
	}
	if out.Code != 0 {
		return &APIError{Status: resp.StatusCode, Code: out.Code, Msg: out.Msg}
	}
	return nil
}
