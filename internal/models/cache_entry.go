package models

import (
	"time"
)

// CacheEntry represents an expiring key/value pair stored in the database-backed cache.
// A zero ExpiresAt never expires. Value carries no explicit column type so each
// dialect picks its own binary type (blob, bytea, longblob).
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name independent of gorm's naming strategy.
func (CacheEntry) TableName() string {
	return "cache_entries"
}

// Expired reports whether the entry is past its expiry at the given instant.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
