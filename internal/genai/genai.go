// Package genai answers free-form prompts through an OpenAI-compatible chat
// completion endpoint.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charlesng35/larkrelay/pkg/metrics"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-3.5-turbo"

const upstreamLabel = "openai"

// chatService is the subset of the OpenAI SDK used here.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Config configures the completion client.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Client wraps the chat completion service.
type Client struct {
	chat  chatService
	model string
}

// NewClient builds a Client. BaseURL is the API host; the /v1/ prefix is appended.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("genai: api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base+"/v1/"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	cli := openai.NewClient(opts...)
	return newWithService(&cli.Chat.Completions, cfg.Model), nil
}

func newWithService(chat chatService, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{chat: chat, model: model}
}

// Complete sends prompt as a single user message and returns the first
// choice's content, or "" when the endpoint returns no choices.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	metrics.UpstreamRequests.WithLabelValues(upstreamLabel, metrics.Result(err)).Inc()
	if err != nil {
		return "", fmt.Errorf("genai: chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
