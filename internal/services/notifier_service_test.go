package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/larkrelay/internal/feeds"
	"github.com/charlesng35/larkrelay/internal/lark"
	apperrors "github.com/charlesng35/larkrelay/pkg/errors"
)

func TestRenderPrices(t *testing.T) {
	body := RenderPrices([]PriceRow{{Symbol: "BTC", Price: "50000"}, {Symbol: "ETH", Price: "3000.5"}})
	require.Equal(t, "# 币安实时价格\n\n- BTC: 50000\n- ETH: 3000.5", body)
	require.Contains(t, body, "- BTC: 50000")
}

func TestPriceAcceptsStringsAndNumbers(t *testing.T) {
	var rows []PriceRow
	require.NoError(t, json.Unmarshal([]byte(`[{"symbol":"BTC","price":50000},{"symbol":"ETH","price":"3000.50"}]`), &rows))
	require.Equal(t, Price("50000"), rows[0].Price)
	require.Equal(t, Price("3000.50"), rows[1].Price)

	require.Error(t, json.Unmarshal([]byte(`[{"symbol":"BTC","price":{}}]`), &rows))
}

func TestRenderQuotes(t *testing.T) {
	body := RenderQuotes([]feeds.Quote{
		{Symbol: "NVDA", Name: "NVIDIA Corporation", Price: "135.58", Change: "-1.2", Open: "136.1", PreviousClose: "136.78"},
		{Symbol: "AAPL", Name: "Apple Inc.", Price: "228.2", Change: "0.5", Open: "227", PreviousClose: "227.7"},
	})
	require.Equal(t,
		"\n- NVDA(NVIDIA Corporation): 135.58(-1.2) 开盘: 136.1 昨收: 136.78\n- AAPL(Apple Inc.): 228.2(0.5) 开盘: 227 昨收: 227.7",
		body,
	)
}

func TestBroadcastJoke(t *testing.T) {
	sender := &recordingSender{}
	svc, err := NewNotifierService(sender, &stubFeed{text: "摸鱼快乐"}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.BroadcastJoke(context.Background(), Target{URL: "https://hook", Secret: "s"}))

	require.Len(t, sender.sent, 1)
	require.Equal(t, "https://hook", sender.sent[0].url)
	require.Equal(t, "s", sender.sent[0].secret)

	card := sender.sent[0].card
	require.Equal(t, TitleJoke, card.Header.Title.Content)
	require.Equal(t, lark.TemplateBlue, card.Header.Template)
	require.Equal(t, []lark.CardElement{{Tag: lark.TagMarkdown, Content: "摸鱼快乐"}}, card.Elements)
}

func TestBroadcastPricesCard(t *testing.T) {
	sender := &recordingSender{}
	svc, err := NewNotifierService(sender, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.BroadcastPrices(context.Background(), Target{URL: "https://hook", Secret: "s"}, []PriceRow{{Symbol: "BTC", Price: "50000"}}))

	require.Len(t, sender.sent, 1)
	card := sender.sent[0].card
	require.Equal(t, TitlePrices, card.Header.Title.Content)
	require.Equal(t, lark.TagDiv, card.Elements[0].Tag)
	require.Contains(t, card.Elements[0].Content, "- BTC: 50000")
}

func TestBroadcastQuotes(t *testing.T) {
	sender := &recordingSender{}
	quotes := &stubQuotes{quotes: []feeds.Quote{{Symbol: "MSFT", Name: "Microsoft", Price: "400", Change: "1", Open: "399", PreviousClose: "399"}}}
	svc, err := NewNotifierService(sender, nil, quotes)
	require.NoError(t, err)

	require.NoError(t, svc.BroadcastQuotes(context.Background(), Target{URL: "https://hook"}))

	require.Len(t, sender.sent, 1)
	card := sender.sent[0].card
	require.Equal(t, TitleQuotes, card.Header.Title.Content)
	require.Equal(t, lark.TagMarkdown, card.Elements[0].Tag)
	require.Equal(t, "\n- MSFT(Microsoft): 400(1) 开盘: 399 昨收: 399", card.Elements[0].Content)
}

func TestBroadcastUpstreamFailure(t *testing.T) {
	sender := &recordingSender{}
	svc, err := NewNotifierService(sender, &stubFeed{err: errors.New("timeout")}, &stubQuotes{err: errors.New("quota")})
	require.NoError(t, err)

	err = svc.BroadcastJoke(context.Background(), Target{URL: "https://hook"})
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	require.ErrorContains(t, err, "timeout")

	err = svc.BroadcastQuotes(context.Background(), Target{URL: "https://hook"})
	require.ErrorIs(t, err, apperrors.ErrUpstream)

	require.Empty(t, sender.sent)
}

func TestBroadcastDeliveryFailureIsSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection refused")}
	svc, err := NewNotifierService(sender, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.BroadcastPrices(context.Background(), Target{URL: "https://hook"}, nil))
	require.Len(t, sender.sent, 1)
}

func TestBroadcastRequiresTarget(t *testing.T) {
	svc, err := NewNotifierService(&recordingSender{}, nil, nil)
	require.NoError(t, err)

	require.ErrorIs(t, svc.BroadcastPrices(context.Background(), Target{}, nil), ErrMissingTarget)

	_, err = NewNotifierService(nil, nil, nil)
	require.Error(t, err)
}
