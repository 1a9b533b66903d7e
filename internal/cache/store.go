package cache

import (
	"context"
	"time"
)

// Store represents the expiring key/value cache shared across the application.
// Expired entries must be indistinguishable from entries that were never set.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Purger is implemented by backends that need expired entries removed explicitly.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Supported cache drivers.
const (
	DriverMemory   = "memory"
	DriverDatabase = "database"
	DriverRedis    = "redis"
)
