package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStoreSetGetWithinTTL(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "LARK_MESSAGE_ID_om_1", []byte("true"), 300*time.Second))

	clock.Advance(299 * time.Second)
	value, ok, err := store.Get(ctx, "LARK_MESSAGE_ID_om_1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "true", string(value))
}

func TestMemoryStoreExpiredEntryLooksUnset(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	clock.Advance(time.Minute)

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, value)
	require.Equal(t, 0, store.Len())
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	clock.Advance(365 * 24 * time.Hour)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("abc"), time.Minute))
	value, _, _ := store.Get(ctx, "k")
	value[0] = 'z'

	again, _, _ := store.Get(ctx, "k")
	require.Equal(t, "abc", string(again))
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, store.Delete(ctx, "a", "missing"))

	_, ok, _ := store.Get(ctx, "a")
	require.False(t, ok)
	_, ok, _ = store.Get(ctx, "b")
	require.True(t, ok)
}

func TestMemoryStoreIncrementWithTTL(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rate", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	clock.Advance(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "rate", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 40*time.Second, ttl)

	clock.Advance(40 * time.Second)
	count, _, err = store.IncrementWithTTL(ctx, "rate", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "new window after expiry")
}

func TestMemoryStorePurgeExpired(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, store.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []byte("3"), 0))

	clock.Advance(time.Minute)
	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
	require.Equal(t, 2, store.Len())
}
