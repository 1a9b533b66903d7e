package api

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/larkrelay/internal/app"
	"github.com/charlesng35/larkrelay/internal/handlers"
	"github.com/charlesng35/larkrelay/internal/middleware"
	"github.com/charlesng35/larkrelay/internal/monitoring"
)

// Dependencies are the collaborators the HTTP surface delegates to.
type Dependencies struct {
	Config    *app.Config
	Messages  handlers.MessageHandler
	Notifier  handlers.Broadcaster
	RateStore middleware.RateStore
	Health    *monitoring.HealthManager
}

// NewRouter builds the Gin engine, wires middleware and registers the routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, errors.New("config must be provided")
	}
	if deps.Messages == nil {
		return nil, errors.New("message handler must be provided")
	}
	if deps.Notifier == nil {
		return nil, errors.New("notifier must be provided")
	}
	cfg := deps.Config

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	window := cfg.Server.RateLimit.Window
	if window <= 0 {
		window = time.Minute
	}
	r.Use(middleware.RateLimit(deps.RateStore, cfg.Server.RateLimit.Requests, window))

	registerHealthRoutes(r, deps.Health)
	registerLarkRoutes(r, deps.Messages, handlers.LarkCallbackConfig{
		VerificationToken: cfg.Lark.VerificationToken,
		EncryptKey:        cfg.Lark.EncryptKey,
	})
	registerWebhookRoutes(r, deps.Notifier)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
