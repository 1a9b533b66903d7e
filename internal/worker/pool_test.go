package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedPool(t *testing.T, opts ...Option) (*Pool, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	pool := New(append([]Option{WithLogger(zap.New(core))}, opts...)...)
	return pool, logs
}

func TestPoolRunsSubmittedTask(t *testing.T) {
	pool, _ := newObservedPool(t)

	var ran atomic.Bool
	require.NoError(t, pool.Submit("test", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		require.True(t, hasDeadline)
		ran.Store(true)
		return nil
	}))

	require.NoError(t, pool.Shutdown(context.Background()))
	require.True(t, ran.Load())
}

func TestPoolLogsFailures(t *testing.T) {
	pool, logs := newObservedPool(t)

	require.NoError(t, pool.Submit("failing", func(context.Context) error {
		return errors.New("upstream down")
	}))
	require.NoError(t, pool.Shutdown(context.Background()))

	entries := logs.FilterMessage("background task failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "failing", entries[0].ContextMap()["task"])
	require.Equal(t, "upstream down", entries[0].ContextMap()["error"])
}

func TestPoolRecoversPanics(t *testing.T) {
	pool, logs := newObservedPool(t)

	require.NoError(t, pool.Submit("panicky", func(context.Context) error {
		panic("boom")
	}))
	require.NoError(t, pool.Shutdown(context.Background()))

	require.Equal(t, 1, logs.FilterMessage("background task panicked").Len())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool, _ := newObservedPool(t, WithMaxConcurrency(2))

	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	for i := 0; i < 8; i++ {
		require.NoError(t, pool.Submit("bounded", func(context.Context) error {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			return nil
		}))
	}

	require.NoError(t, pool.Shutdown(context.Background()))
	require.LessOrEqual(t, peak, 2)
	require.GreaterOrEqual(t, peak, 1)
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool, _ := newObservedPool(t)
	require.NoError(t, pool.Shutdown(context.Background()))

	err := pool.Submit("late", func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrPoolClosed)
	require.ErrorIs(t, pool.Submit("nil", nil), ErrNilTask)
}

func TestPoolShutdownDeadlineCancelsTasks(t *testing.T) {
	pool, logs := newObservedPool(t)

	cancelled := make(chan struct{})
	require.NoError(t, pool.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
	require.Equal(t, 1, logs.FilterMessage("shutdown deadline reached, abandoning background tasks").Len())
}

func TestPoolTaskTimeout(t *testing.T) {
	pool, _ := newObservedPool(t, WithTaskTimeout(10*time.Millisecond))

	var taskErr atomic.Value
	require.NoError(t, pool.Submit("timeout", func(ctx context.Context) error {
		<-ctx.Done()
		taskErr.Store(ctx.Err())
		return ctx.Err()
	}))

	require.NoError(t, pool.Shutdown(context.Background()))
	require.ErrorIs(t, taskErr.Load().(error), context.DeadlineExceeded)
}

func TestPoolRejectsWhenBacklogFull(t *testing.T) {
	pool, logs := newObservedPool(t, WithMaxConcurrency(1), WithQueueSize(1))

	release := make(chan struct{})
	started := make(chan struct{})
	var ran atomic.Int32

	require.NoError(t, pool.Submit("blocking", func(context.Context) error {
		close(started)
		<-release
		ran.Add(1)
		return nil
	}))
	<-started

	require.NoError(t, pool.Submit("queued", func(context.Context) error {
		ran.Add(1)
		return nil
	}))

	err := pool.Submit("overflow", func(context.Context) error {
		ran.Add(1)
		return nil
	})
	require.ErrorIs(t, err, ErrPoolFull)
	require.Equal(t, 1, logs.FilterMessage("background task rejected, pool is full").Len())

	close(release)
	require.NoError(t, pool.Shutdown(context.Background()))
	require.EqualValues(t, 2, ran.Load())
}

func TestPoolAdmitsAgainAfterTasksFinish(t *testing.T) {
	pool, _ := newObservedPool(t, WithMaxConcurrency(1), WithQueueSize(0))

	done := make(chan struct{})
	require.NoError(t, pool.Submit("first", func(context.Context) error {
		close(done)
		return nil
	}))
	<-done

	require.Eventually(t, func() bool {
		return pool.Submit("second", func(context.Context) error { return nil }) == nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, pool.Shutdown(context.Background()))
}
