package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultStockBaseURL is the financialmodelingprep API host.
const DefaultStockBaseURL = "https://financialmodelingprep.com"

// DefaultSymbols are quoted when none are configured.
var DefaultSymbols = []string{"NVDA", "AAPL", "MSFT"}

// Quote is one stock quote. Numbers are kept as sent so they render verbatim.
type Quote struct {
	Symbol        string      `json:"symbol"`
	Name          string      `json:"name"`
	Price         json.Number `json:"price"`
	Change        json.Number `json:"change"`
	Open          json.Number `json:"open"`
	PreviousClose json.Number `json:"previousClose"`
}

// QuoteFeed fetches real-time stock quotes.
type QuoteFeed struct {
	baseURL string
	apiKey  string
	symbols []string
	client  *http.Client
}

// NewQuoteFeed constructs a QuoteFeed. Empty baseURL or symbols fall back to defaults.
func NewQuoteFeed(baseURL, apiKey string, symbols []string, client *http.Client) *QuoteFeed {
	if baseURL == "" {
		baseURL = DefaultStockBaseURL
	}
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	return &QuoteFeed{baseURL: baseURL, apiKey: apiKey, symbols: symbols, client: defaultClient(client)}
}

// Fetch returns the quotes in upstream order.
func (f *QuoteFeed) Fetch(ctx context.Context) ([]Quote, error) {
	if f.apiKey == "" {
		return nil, errors.New("feeds: stock api key is not configured")
	}

	endpoint := joinURL(f.baseURL, "/api/v3/quote/"+strings.Join(f.symbols, ",")) +
		"?apikey=" + url.QueryEscape(f.apiKey)

	body, err := fetch(ctx, f.client, UpstreamStock, endpoint)
	if err != nil {
		return nil, err
	}

	var quotes []Quote
	if err := json.Unmarshal(body, &quotes); err != nil {
		return nil, fmt.Errorf("feeds: decode stock quotes: %w", err)
	}
	return quotes, nil
}
