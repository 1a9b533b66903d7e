package maintenance

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/larkrelay/internal/cache"
	"github.com/charlesng35/larkrelay/pkg/logger"
)

const defaultPurgeSpec = "@every 5m"

// Cleaner periodically removes expired cache entries from backends that do
// not expire keys on their own.
type Cleaner struct {
	purgers  map[string]cache.Purger
	cron     *cron.Cron
	log      *zap.Logger
	schedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for purges.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithPurger registers a named purger. Nil purgers are ignored.
func WithPurger(name string, purger cache.Purger) Option {
	return func(cleaner *Cleaner) {
		if purger != nil {
			cleaner.purgers[name] = purger
		}
	}
}

// NewCleaner constructs a Cleaner. Without purgers Start is a no-op.
func NewCleaner(opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		purgers:  make(map[string]cache.Purger),
		schedule: defaultPurgeSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the purge job and launches the scheduler.
func (c *Cleaner) Start() error {
	if len(c.purgers) == 0 {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("cache purge failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce purges every registered backend, combining their errors.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for name, purger := range c.purgers {
		removed, err := purger.PurgeExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("purge %s: %w", name, err))
			continue
		}
		if removed > 0 {
			c.log.Debug("expired cache entries purged", zap.String("store", name), zap.Int64("removed", removed))
		}
	}

	return errs
}
