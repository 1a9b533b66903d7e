package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/larkrelay/internal/api"
	"github.com/charlesng35/larkrelay/internal/app"
	"github.com/charlesng35/larkrelay/internal/app/maintenance"
	"github.com/charlesng35/larkrelay/internal/cache"
	"github.com/charlesng35/larkrelay/internal/database"
	"github.com/charlesng35/larkrelay/internal/feeds"
	"github.com/charlesng35/larkrelay/internal/genai"
	"github.com/charlesng35/larkrelay/internal/lark"
	"github.com/charlesng35/larkrelay/internal/middleware"
	"github.com/charlesng35/larkrelay/internal/monitoring"
	"github.com/charlesng35/larkrelay/internal/monitoring/checks"
	"github.com/charlesng35/larkrelay/internal/services"
	"github.com/charlesng35/larkrelay/internal/worker"
	"github.com/charlesng35/larkrelay/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   *cache.RedisClient
	Store   cache.Store
	Pool    *worker.Pool
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime opens the cache backend, wires the services and builds the router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := stack.openStore(cfg, log); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}

	tokens, err := lark.NewTokenSource(stack.Store, lark.Credentials{
		BaseURL:   cfg.Lark.BaseURL,
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
	}, lark.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("initialise token source: %w", err)
	}

	larkClient, err := lark.NewClient(cfg.Lark.BaseURL, tokens, lark.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("initialise lark client: %w", err)
	}

	ai, err := genai.NewClient(genai.Config{
		BaseURL:    cfg.OpenAI.BaseURL,
		APIKey:     cfg.OpenAI.APIKey,
		Model:      cfg.OpenAI.Model,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise ai client: %w", err)
	}

	stack.Pool = worker.New(
		worker.WithMaxConcurrency(cfg.Worker.MaxConcurrency),
		worker.WithQueueSize(cfg.Worker.QueueSize),
		worker.WithTaskTimeout(cfg.Worker.TaskTimeout),
	)

	jokes := feeds.NewJokeFeed(cfg.Feeds.MoyuURL, httpClient)

	replies, err := services.NewReplyService(services.ReplyDeps{
		Store:   stack.Store,
		Jokes:   jokes,
		Random:  feeds.NewRandomFeed(cfg.Feeds.AwslAPIURL, httpClient),
		AI:      ai,
		Replier: larkClient,
		Tasks:   stack.Pool,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise reply service: %w", err)
	}

	notifier, err := services.NewNotifierService(
		lark.NewWebhookSender(lark.WithHTTPClient(httpClient)),
		jokes,
		feeds.NewQuoteFeed(cfg.Stock.BaseURL, cfg.Stock.APIKey, cfg.Stock.Symbols, httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise notifier service: %w", err)
	}

	if purger, ok := stack.Store.(cache.Purger); ok {
		stack.Cleaner = maintenance.NewCleaner(
			maintenance.WithSchedule(cfg.Cache.PurgeSchedule),
			maintenance.WithPurger(cfg.Cache.Driver, purger),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:    cfg,
		Messages:  replies,
		Notifier:  notifier,
		RateStore: middleware.NewCacheRateStore(stack.Store),
		Health:    stack.readiness(),
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// openStore selects the cache backend named by cache.driver.
func (s *runtimeStack) openStore(cfg *app.Config, log *zap.Logger) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Driver)) {
	case "", cache.DriverMemory:
		s.Store = cache.NewMemoryStore()
	case cache.DriverDatabase:
		db, err := initialiseDatabase(cfg)
		if err != nil {
			return err
		}
		s.DB = db
		s.Store = cache.NewDatabaseStore(db)
	case cache.DriverRedis:
		client, err := cache.NewRedisClient(cfg.Cache.RedisClientConfig())
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		s.Redis = client
		s.Store = client
		log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
	default:
		return fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}
	return nil
}

// readiness probes the cache round trip plus the connection behind it.
func (s *runtimeStack) readiness() *monitoring.HealthManager {
	manager := monitoring.NewHealthManager(checks.Cache(s.Store, 0))
	if s.DB != nil {
		manager.Register(checks.Database(s.DB, 0))
	}
	if s.Redis != nil {
		manager.Register(checks.Redis(s.Redis, 0))
	}
	return manager
}

// Shutdown drains background replies, stops maintenance and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Pool != nil {
		if err := s.Pool.Shutdown(ctx); err != nil {
			log.Warn("background tasks did not finish", zap.Error(err))
		}
	}

	if s.Cleaner != nil {
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs still running at shutdown")
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseClientConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Prepare(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("prepare database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(dbCfg.Driver)))

	return db, nil
}
