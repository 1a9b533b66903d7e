package checks

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/charlesng35/larkrelay/internal/cache"
	"github.com/charlesng35/larkrelay/internal/monitoring"
)

// CacheProbeKey is written and read back by the Cache check.
const CacheProbeKey = "health:probe"

const (
	defaultCacheTimeout = 2 * time.Second
	cacheProbeTTL       = 30 * time.Second
)

var errProbeMismatch = errors.New("cache returned a different value than written")

// Cache writes a short-lived key through the store and reads it back, which
// exercises whichever backend the relay dedups and caches tokens with.
func Cache(store cache.Store, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "cache not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultCacheTimeout))
		defer cancel()

		want := []byte(start.UTC().Format(time.RFC3339Nano))
		if err := store.Set(probeCtx, CacheProbeKey, want, cacheProbeTTL); err != nil {
			return monitoring.ResultFromError("cache", err, time.Since(start))
		}
		got, ok, err := store.Get(probeCtx, CacheProbeKey)
		if err == nil && (!ok || !bytes.Equal(got, want)) {
			err = errProbeMismatch
		}
		return monitoring.ResultFromError("cache", err, time.Since(start))
	})
}
