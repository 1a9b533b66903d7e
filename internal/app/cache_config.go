package app

import (
	"strings"

	"github.com/charlesng35/larkrelay/internal/cache"
	"github.com/charlesng35/larkrelay/internal/database"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		URL:      strings.TrimSpace(c.Redis.URL),
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
		PoolSize: c.Redis.PoolSize,
	}
}

// DatabaseClientConfig converts the database section into database.Config.
func (c DatabaseConfig) DatabaseClientConfig() database.Config {
	return database.Config{
		Driver:   strings.TrimSpace(c.Driver),
		Path:     strings.TrimSpace(c.Path),
		DSN:      strings.TrimSpace(c.DSN),
		Host:     strings.TrimSpace(c.Host),
		Port:     c.Port,
		Name:     strings.TrimSpace(c.Name),
		User:     strings.TrimSpace(c.User),
		Password: c.Password,
		Options:  c.Options,
	}
}
