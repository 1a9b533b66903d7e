// Package worker runs detached background tasks that outlive the HTTP
// request which scheduled them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/charlesng35/larkrelay/pkg/logger"
	"github.com/charlesng35/larkrelay/pkg/metrics"
)

const (
	defaultMaxConcurrency = 16
	defaultQueueSize      = 256
	defaultTaskTimeout    = 30 * time.Second
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown was called.
	ErrPoolClosed = errors.New("worker: pool is shut down")
	// ErrNilTask is returned when Submit receives a nil task.
	ErrNilTask = errors.New("worker: nil task")
	// ErrPoolFull is returned by Submit when every slot is running and the
	// backlog is at capacity.
	ErrPoolFull = errors.New("worker: pool is full")
)

// Task is a unit of background work. The context carries the task timeout
// and is cancelled when the pool gives up on shutdown.
type Task func(ctx context.Context) error

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker: task panicked: %v", e.Value)
}

// Pool executes tasks with bounded concurrency.
type Pool struct {
	sem     *semaphore.Weighted
	admit   *semaphore.Weighted
	timeout time.Duration

	maxConcurrency int
	queueSize      int

	log     *zap.Logger

	base   context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option customises a Pool.
type Option func(*Pool)

// WithMaxConcurrency bounds how many tasks run at once.
func WithMaxConcurrency(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxConcurrency = n
		}
	}
}

// WithQueueSize bounds how many submitted tasks may wait for a free slot.
// Zero means no waiting: Submit fails as soon as every slot is busy.
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.queueSize = n
		}
	}
}

// WithTaskTimeout sets the per-task deadline.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger overrides the pool logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pool) {
		if log != nil {
			p.log = log
		}
	}
}

// New constructs a Pool ready to accept work.
func New(opts ...Option) *Pool {
	base, cancel := context.WithCancel(context.Background())
	p := &Pool{
		maxConcurrency: defaultMaxConcurrency,
		queueSize:      defaultQueueSize,
		timeout:        defaultTaskTimeout,
		log:            logger.WithModule("worker"),
		base:           base,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sem = semaphore.NewWeighted(int64(p.maxConcurrency))
	p.admit = semaphore.NewWeighted(int64(p.maxConcurrency + p.queueSize))
	return p
}

// Submit schedules task under name and returns immediately. At most
// max concurrency plus queue size tasks are admitted at once; beyond that
// Submit returns ErrPoolFull without starting a goroutine. Task failures are
// logged and counted, never returned to the caller.
func (p *Pool) Submit(name string, task Task) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		metrics.BackgroundTasks.WithLabelValues(name, "rejected").Inc()
		return ErrPoolClosed
	}

	if !p.admit.TryAcquire(1) {
		metrics.BackgroundTasks.WithLabelValues(name, "rejected").Inc()
		p.log.Warn("background task rejected, pool is full", zap.String("task", name))
		return ErrPoolFull
	}

	p.wg.Add(1)
	go p.run(name, uuid.NewString(), task)
	return nil
}

func (p *Pool) run(name, id string, task Task) {
	defer p.wg.Done()
	defer p.admit.Release(1)

	log := p.log.With(zap.String("task", name), zap.String("task_id", id))

	if err := p.sem.Acquire(p.base, 1); err != nil {
		metrics.BackgroundTasks.WithLabelValues(name, "rejected").Inc()
		log.Warn("background task abandoned before start", zap.Error(err))
		return
	}
	defer p.sem.Release(1)

	metrics.InflightTasks.Inc()
	defer metrics.InflightTasks.Dec()

	ctx, cancel := context.WithTimeout(p.base, p.timeout)
	defer cancel()

	start := time.Now()
	err := execute(ctx, task)
	duration := time.Since(start)

	var panicErr *PanicError
	switch {
	case err == nil:
		metrics.BackgroundTasks.WithLabelValues(name, "success").Inc()
		log.Debug("background task completed", zap.Duration("duration", duration))
	case errors.As(err, &panicErr):
		metrics.BackgroundTasks.WithLabelValues(name, "panic").Inc()
		log.Error("background task panicked",
			zap.Any("panic", panicErr.Value),
			zap.ByteString("stack", panicErr.Stack),
			zap.Duration("duration", duration),
		)
	default:
		metrics.BackgroundTasks.WithLabelValues(name, "failure").Inc()
		log.Warn("background task failed", zap.Error(err), zap.Duration("duration", duration))
	}
}

func execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return task(ctx)
}

// Shutdown stops accepting work and waits for scheduled tasks. When ctx ends
// first, the remaining tasks have their contexts cancelled and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		p.log.Warn("shutdown deadline reached, abandoning background tasks", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
