package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/larkrelay/internal/app"
	"github.com/charlesng35/larkrelay/internal/cache"
	"github.com/charlesng35/larkrelay/internal/handlers"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	cfg := &app.Config{
		Server: app.ServerConfig{Port: 8787},
		Cache:  app.CacheConfig{Driver: cache.DriverMemory, PurgeSchedule: "@every 5m"},
		Lark: app.LarkConfig{
			BaseURL:           "https://open.larksuite.com",
			AppID:             "cli_test",
			AppSecret:         "secret",
			VerificationToken: "token",
		},
		OpenAI: app.OpenAIConfig{BaseURL: "https://api.openai.com", APIKey: "sk-test"},
		Worker: app.WorkerConfig{MaxConcurrency: 2, TaskTimeout: time.Second},
	}
	_, err := app.ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	return cfg
}

func TestBootstrapRuntimeMemory(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.IsType(t, &cache.MemoryStore{}, stack.Store)
	require.Nil(t, stack.DB)
	require.NotNil(t, stack.Cleaner)
	require.NotNil(t, stack.Pool)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, handlers.Greeting, w.Body.String())
}

func TestBootstrapRuntimeDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Driver = cache.DriverDatabase
	cfg.Database = app.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}

	stack, err := bootstrapRuntime(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.DB)
	require.IsType(t, &cache.DatabaseStore{}, stack.Store)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"component":"database"`)

	ctx := context.Background()
	require.NoError(t, stack.Store.Set(ctx, "k", []byte("v"), time.Minute))
	value, ok, err := stack.Store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)
}

func TestBootstrapRuntimeRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Driver = "etcd"

	_, err := bootstrapRuntime(cfg, zap.NewNop())
	require.ErrorContains(t, err, `unsupported cache driver "etcd"`)
}

func TestBootstrapRuntimeBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.PurgeSchedule = "not a schedule"

	_, err := bootstrapRuntime(cfg, zap.NewNop())
	require.ErrorContains(t, err, "start maintenance jobs")
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")
}

func TestLoadApplicationConfigFromFile(t *testing.T) {
	path := filepath.Join("..", "..", "internal", "app", "testdata", "config.yaml")

	cfg, err := loadApplicationConfig(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Lark.AppID)
}

func TestLoadApplicationConfigHonoursFileName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 1111\n"), 0o600))
	custom := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(custom, []byte("server:\n  port: 2222\n"), 0o600))

	cfg, err := loadApplicationConfig(custom)
	require.NoError(t, err)
	require.Equal(t, 2222, cfg.Server.Port)

	cfg, err = loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 1111, cfg.Server.Port)
}
