package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/larkrelay/internal/handlers"
)

func registerLarkRoutes(r *gin.Engine, messages handlers.MessageHandler, cfg handlers.LarkCallbackConfig) {
	callback := handlers.NewLarkCallbackHandler(messages, cfg)
	r.POST("/lark_callback", callback.Handle)
}

func registerWebhookRoutes(r *gin.Engine, notifier handlers.Broadcaster) {
	webhooks := handlers.NewWebhookHandler(notifier)
	r.POST("/lark_bot_webhook_moyuban", webhooks.Joke)
	r.POST("/lark_bot_webhook_binance", webhooks.Prices)
	r.POST("/lark_bot_webhook_stock", webhooks.Quotes)
}
