package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/larkrelay/internal/services"
	"github.com/charlesng35/larkrelay/pkg/response"
)

// Broadcaster renders and delivers broadcast cards.
type Broadcaster interface {
	BroadcastJoke(ctx context.Context, target services.Target) error
	BroadcastPrices(ctx context.Context, target services.Target, prices []services.PriceRow) error
	BroadcastQuotes(ctx context.Context, target services.Target) error
}

// WebhookHandler serves the custom-bot notifier routes.
type WebhookHandler struct {
	notifier Broadcaster
}

// NewWebhookHandler constructs the notifier handler.
func NewWebhookHandler(notifier Broadcaster) *WebhookHandler {
	return &WebhookHandler{notifier: notifier}
}

type webhookRequest struct {
	URL    string `json:"url" validate:"required,httpurl"`
	Secret string `json:"secret" validate:"required"`
}

type priceWebhookRequest struct {
	URL    string              `json:"url" validate:"required,httpurl"`
	Secret string              `json:"secret" validate:"required"`
	Data   []services.PriceRow `json:"data" validate:"required,dive"`
}

// Joke handles POST /lark_bot_webhook_moyuban
func (h *WebhookHandler) Joke(c *gin.Context) {
	var req webhookRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.notifier.BroadcastJoke(c.Request.Context(), services.Target{URL: req.URL, Secret: req.Secret}); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}

// Prices handles POST /lark_bot_webhook_binance
func (h *WebhookHandler) Prices(c *gin.Context) {
	var req priceWebhookRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.notifier.BroadcastPrices(c.Request.Context(), services.Target{URL: req.URL, Secret: req.Secret}, req.Data); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}

// Quotes handles POST /lark_bot_webhook_stock
func (h *WebhookHandler) Quotes(c *gin.Context) {
	var req webhookRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.notifier.BroadcastQuotes(c.Request.Context(), services.Target{URL: req.URL, Secret: req.Secret}); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}
