package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/larkrelay/internal/feeds"
	"github.com/charlesng35/larkrelay/internal/lark"
	"github.com/charlesng35/larkrelay/pkg/logger"
	"github.com/charlesng35/larkrelay/pkg/metrics"
)

// Card titles of the broadcast variants.
const (
	TitleJoke   = "摸鱼办"
	TitlePrices = "币安实时价格"
	TitleQuotes = "股票实时价格"
)

// Broadcast variants, used as metric labels.
const (
	VariantJoke   = "moyu"
	VariantPrices = "binance"
	VariantQuotes = "stock"
)

// Target is a custom-bot webhook and its signing secret.
type Target struct {
	URL    string
	Secret string
}

// Price is a ticker price as supplied by the caller. It accepts JSON strings
// and numbers and renders them verbatim.
type Price string

// UnmarshalJSON keeps numbers in their literal form and unquotes strings.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price must be a string or number: %w", err)
	}
	*p = Price(n.String())
	return nil
}

// PriceRow is one ticker line of the price card.
type PriceRow struct {
	Symbol string `json:"symbol" validate:"required"`
	Price  Price  `json:"price"`
}

// WebhookSender delivers a signed card.
type WebhookSender interface {
	Send(ctx context.Context, webhookURL, secret string, card lark.Card) error
}

// QuoteSource yields stock quotes.
type QuoteSource interface {
	Fetch(ctx context.Context) ([]feeds.Quote, error)
}

// NotifierService renders and delivers the broadcast cards.
type NotifierService struct {
	sender WebhookSender
	jokes  TextFeed
	quotes QuoteSource
	log    *zap.Logger
}

// NewNotifierService constructs a NotifierService.
func NewNotifierService(sender WebhookSender, jokes TextFeed, quotes QuoteSource) (*NotifierService, error) {
	if sender == nil {
		return nil, errors.New("notifier service: webhook sender is required")
	}
	return &NotifierService{
		sender: sender,
		jokes:  jokes,
		quotes: quotes,
		log:    logger.WithModule("notifier"),
	}, nil
}

// BroadcastJoke sends the joke card.
func (s *NotifierService) BroadcastJoke(ctx context.Context, target Target) error {
	ctx = ensuredContext(ctx)
	if err := validateTarget(target); err != nil {
		return err
	}
	if s.jokes == nil {
		return upstreamError(errors.New("notifier service: joke feed is not configured"))
	}

	text, err := s.jokes.Fetch(ctx)
	if err != nil {
		return upstreamError(err)
	}

	card := lark.NewHeaderCard(TitleJoke, lark.TemplateBlue, lark.CardElement{Tag: lark.TagMarkdown, Content: text})
	s.deliver(ctx, VariantJoke, target, card)
	return nil
}

// BroadcastPrices sends the caller-supplied ticker prices.
func (s *NotifierService) BroadcastPrices(ctx context.Context, target Target, prices []PriceRow) error {
	ctx = ensuredContext(ctx)
	if err := validateTarget(target); err != nil {
		return err
	}

	card := lark.NewHeaderCard(TitlePrices, lark.TemplateBlue, lark.CardElement{Tag: lark.TagDiv, Content: RenderPrices(prices)})
	s.deliver(ctx, VariantPrices, target, card)
	return nil
}

// BroadcastQuotes fetches stock quotes and sends them.
func (s *NotifierService) BroadcastQuotes(ctx context.Context, target Target) error {
	ctx = ensuredContext(ctx)
	if err := validateTarget(target); err != nil {
		return err
	}
	if s.quotes == nil {
		return upstreamError(errors.New("notifier service: quote feed is not configured"))
	}

	quotes, err := s.quotes.Fetch(ctx)
	if err != nil {
		return upstreamError(err)
	}

	card := lark.NewHeaderCard(TitleQuotes, lark.TemplateBlue, lark.CardElement{Tag: lark.TagMarkdown, Content: RenderQuotes(quotes)})
	s.deliver(ctx, VariantQuotes, target, card)
	return nil
}

// deliver logs and counts delivery failures without returning them.
func (s *NotifierService) deliver(ctx context.Context, variant string, target Target, card lark.Card) {
	err := s.sender.Send(ctx, target.URL, target.Secret, card)
	metrics.WebhookDeliveries.WithLabelValues(variant, metrics.Result(err)).Inc()
	if err != nil {
		s.log.Warn("webhook delivery failed", zap.String("variant", variant), zap.Error(err))
	}
}

// RenderPrices formats the price card body.
func RenderPrices(prices []PriceRow) string {
	lines := make([]string, 0, len(prices))
	for _, row := range prices {
		lines = append(lines, fmt.Sprintf("- %s: %s", row.Symbol, row.Price))
	}
	return "# " + TitlePrices + "\n\n" + strings.Join(lines, "\n")
}

// RenderQuotes formats the stock card body.
func RenderQuotes(quotes []feeds.Quote) string {
	lines := make([]string, 0, len(quotes))
	for _, q := range quotes {
		lines = append(lines, fmt.Sprintf("- %s(%s): %s(%s) 开盘: %s 昨收: %s",
			q.Symbol, q.Name, q.Price, q.Change, q.Open, q.PreviousClose))
	}
	return "\n" + strings.Join(lines, "\n")
}

func validateTarget(target Target) error {
	if strings.TrimSpace(target.URL) == "" {
		return ErrMissingTarget
	}
	return nil
}
