package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/charlesng35/larkrelay/pkg/validator"
)

// EnvPrefix prefixes every environment override, e.g. LARKRELAY_LARK_APP_ID.
const EnvPrefix = "LARKRELAY"

// Config represents the runtime configuration of the relay.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Lark       LarkConfig       `mapstructure:"lark"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Feeds      FeedsConfig      `mapstructure:"feeds"`
	Stock      StockConfig      `mapstructure:"stock"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int             `mapstructure:"port" validate:"min=1,max=65535"`
	LogLevel        string          `mapstructure:"log_level"`
	LogFormat       string          `mapstructure:"log_format" validate:"omitempty,oneof=json console"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures the fixed-window limiter. Zero requests disables it.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"min=0"`
	Window   time.Duration `mapstructure:"window"`
}

// CacheConfig selects and configures the key/value backend.
type CacheConfig struct {
	Driver        string           `mapstructure:"driver" validate:"oneof=memory database redis"`
	PurgeSchedule string           `mapstructure:"purge_schedule"`
	Redis         RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options. URL wins over Address.
type RedisCacheConfig struct {
	URL      string        `mapstructure:"url"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PoolSize int           `mapstructure:"pool_size" validate:"min=0"`
}

// DatabaseConfig describes the SQL database used by the database cache driver.
type DatabaseConfig struct {
	Driver   string            `mapstructure:"driver" validate:"oneof=sqlite postgres mysql"`
	Path     string            `mapstructure:"path"`
	DSN      string            `mapstructure:"dsn"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port" validate:"min=0,max=65535"`
	Name     string            `mapstructure:"name"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// LarkConfig holds the self-built app credentials and callback secrets.
type LarkConfig struct {
	BaseURL           string `mapstructure:"base_url" validate:"required,httpurl"`
	AppID             string `mapstructure:"app_id" validate:"required"`
	AppSecret         string `mapstructure:"app_secret" validate:"required"`
	VerificationToken string `mapstructure:"verification_token" validate:"required"`
	EncryptKey        string `mapstructure:"encrypt_key"`
}

// OpenAIConfig points at an OpenAI-compatible chat completion API.
type OpenAIConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,httpurl"`
	APIKey  string `mapstructure:"api_key" validate:"required"`
	Model   string `mapstructure:"model"`
}

// FeedsConfig locates the text feeds used by chat commands and broadcasts.
type FeedsConfig struct {
	MoyuURL    string `mapstructure:"moyu_url" validate:"omitempty,httpurl"`
	AwslAPIURL string `mapstructure:"awsl_api_url" validate:"omitempty,httpurl"`
}

// StockConfig configures the stock quote feed.
type StockConfig struct {
	BaseURL string   `mapstructure:"base_url" validate:"omitempty,httpurl"`
	APIKey  string   `mapstructure:"api_key"`
	Symbols []string `mapstructure:"symbols"`
}

// WorkerConfig bounds background reply tasks.
type WorkerConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency" validate:"min=1"`
	QueueSize      int           `mapstructure:"queue_size" validate:"min=0"`
	TaskTimeout    time.Duration `mapstructure:"task_timeout"`
}

// HTTPConfig configures outbound HTTP calls.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// legacyEnv maps config keys to the plain variable names older deployments use.
var legacyEnv = map[string]string{
	"lark.app_id":             "LARK_APP_ID",
	"lark.app_secret":         "LARK_APP_SECRET",
	"lark.verification_token": "LARK_VERIFICATION_TOKEN",
	"lark.encrypt_key":        "LARK_ENCRYPT_KEY",
	"openai.base_url":         "OPENAI_API_URL",
	"openai.api_key":          "OPENAI_API_KEY",
	"feeds.moyu_url":          "MOYU_URL",
	"feeds.awsl_api_url":      "AWSL_API_URL",
	"stock.api_key":           "STOCK_API_KEY",
}

// LoadConfig reads .env, config.yaml from ./config and paths, and the
// environment, in increasing order of precedence. A path naming a regular
// file is read as the config file itself, whatever its base name.
func LoadConfig(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			v.SetConfigFile(path)
			continue
		}
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Cache.Driver == "redis" && strings.TrimSpace(c.Cache.Redis.URL) == "" && strings.TrimSpace(c.Cache.Redis.Address) == "" {
		return errors.New("config: cache.redis.url or cache.redis.address is required for the redis driver")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.rate_limit.requests", 0)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.purge_schedule", "@every 5m")
	v.SetDefault("cache.redis.url", "")
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.pool_size", 0)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")

	v.SetDefault("lark.base_url", "https://open.larksuite.com")
	v.SetDefault("lark.app_id", "")
	v.SetDefault("lark.app_secret", "")
	v.SetDefault("lark.verification_token", "")
	v.SetDefault("lark.encrypt_key", "")

	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-3.5-turbo")

	v.SetDefault("feeds.moyu_url", "")
	v.SetDefault("feeds.awsl_api_url", "")

	v.SetDefault("stock.base_url", "https://financialmodelingprep.com")
	v.SetDefault("stock.api_key", "")
	v.SetDefault("stock.symbols", []string{"NVDA", "AAPL", "MSFT"})

	v.SetDefault("worker.max_concurrency", 16)
	v.SetDefault("worker.queue_size", 256)
	v.SetDefault("worker.task_timeout", "30s")

	v.SetDefault("http.timeout", "10s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
