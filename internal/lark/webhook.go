package lark

import (
	"context"
	"errors"
	"fmt"
)

// WebhookMessage is the custom-bot webhook body.
type WebhookMessage struct {
	Timestamp int64  `json:"timestamp"`
	MsgType   string `json:"msg_type"`
	Sign      string `json:"sign"`
	Card      Card   `json:"card"`
}

// WebhookSender delivers signed cards to custom-bot webhooks.
type WebhookSender struct {
	opts options
}

// NewWebhookSender constructs a WebhookSender.
func NewWebhookSender(opts ...Option) *WebhookSender {
	return &WebhookSender{opts: buildOptions(opts)}
}

// BuildMessage signs card with secret at the current unix time.
func (s *WebhookSender) BuildMessage(secret string, card Card) (WebhookMessage, error) {
	ts := s.opts.now().Unix()
	sign, err := GenSign(ts, secret, "")
	if err != nil {
		return WebhookMessage{}, fmt.Errorf("lark: sign webhook: %w", err)
	}
	return WebhookMessage{
		Timestamp: ts,
		MsgType:   "interactive",
		Sign:      sign,
		Card:      card,
	}, nil
}

// Send posts card to webhookURL. The response body is not inspected beyond the HTTP status.
func (s *WebhookSender) Send(ctx context.Context, webhookURL, secret string, card Card) error {
	if webhookURL == "" {
		return errors.New("lark: webhook url is required")
	}

	msg, err := s.BuildMessage(secret, card)
	if err != nil {
		return err
	}

	resp, raw, err := postJSON(ctx, s.opts.httpClient, webhookURL, "", msg)
	if err != nil {
		return err
	}
	return checkStatus(resp, raw)
}
