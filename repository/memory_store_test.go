package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryKVStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKVStore()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "key", "value", 0))
	value, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", value)

	require.NoError(t, store.Delete(ctx, "key"))
	_, found, err = store.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryKVStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryKVStore()
	store.SetClock(clock.Now)

	require.NoError(t, store.Set(ctx, "otp:9123456789", "hash", 300*time.Second))

	ttl, err := store.TTL(ctx, "otp:9123456789")
	require.NoError(t, err)
	assert.Equal(t, 300, ttl)

	clock.Advance(299 * time.Second)
	_, found, _ := store.Get(ctx, "otp:9123456789")
	assert.True(t, found)

	clock.Advance(time.Second)
	_, found, _ = store.Get(ctx, "otp:9123456789")
	assert.False(t, found)

	ttl, err = store.TTL(ctx, "otp:9123456789")
	require.NoError(t, err)
	assert.Equal(t, -1, ttl)
}

func TestMemoryKVStore_TTLWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKVStore()

	require.NoError(t, store.Set(ctx, "key", "value", 0))
	ttl, err := store.TTL(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, -1, ttl)
}

func TestMemoryKVStore_IncrKeepsExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryKVStore()
	store.SetClock(clock.Now)

	n, err := store.Incr(ctx, "otpcount:9123456789")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.Expire(ctx, "otpcount:9123456789", time.Hour))
	clock.Advance(30 * time.Minute)

	n, err = store.Incr(ctx, "otpcount:9123456789")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl, err := store.TTL(ctx, "otpcount:9123456789")
	require.NoError(t, err)
	assert.Equal(t, 1800, ttl)

	clock.Advance(30 * time.Minute)
	n, err = store.Incr(ctx, "otpcount:9123456789")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counter restarts once the window has elapsed")
}

func TestMemoryKVStore_IncrNonInteger(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKVStore()

	require.NoError(t, store.Set(ctx, "key", "abc", 0))
	_, err := store.Incr(ctx, "key")
	assert.Error(t, err)
}

func TestMemoryKVStore_ConcurrentIncr(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKVStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Incr(ctx, "counter")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	value, found, err := store.Get(ctx, "counter")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "50", value)
}

func TestMemoryKVStore_DecrKeepsExpiryAndFloor(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryKVStore()
	store.SetClock(clock.Now)

	n, err := store.Decr(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.Incr(ctx, "counter")
	require.NoError(t, err)
	require.NoError(t, store.Expire(ctx, "counter", time.Minute))

	n, err = store.Decr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	n, err = store.Decr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	ttl, err := store.TTL(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, 60, ttl)
}

func TestMemoryKVStore_ConcurrentGetDel(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKVStore()
	require.NoError(t, store.Set(ctx, "verified:9123456789", "marker", time.Minute))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, found, err := store.GetDel(ctx, "verified:9123456789")
			assert.NoError(t, err)
			if found {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, claimed)
}

func TestMemoryKVStore_JSON(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKVStore()

	type payload struct {
		Verified bool `json:"verified"`
	}

	require.NoError(t, store.SetJSON(ctx, "json", payload{Verified: true}, time.Minute))
	var got payload
	found, err := store.GetJSON(ctx, "json", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, got.Verified)

	require.NoError(t, store.Set(ctx, "broken", "{not json", time.Minute))
	found, err = store.GetJSON(ctx, "broken", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryKVStore_Purge(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryKVStore()
	store.SetClock(clock.Now)

	require.NoError(t, store.Set(ctx, "short", "1", time.Minute))
	require.NoError(t, store.Set(ctx, "long", "1", time.Hour))
	require.NoError(t, store.Set(ctx, "forever", "1", 0))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, store.Purge())
	assert.Equal(t, 2, store.Len())
}
