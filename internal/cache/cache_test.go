package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	c := NewMemory().WithClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "summary:7", []byte("cached"), 30*time.Second))

	raw, ok, err := c.Get(ctx, "summary:7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached", string(raw))

	now = now.Add(31 * time.Second)
	_, ok, err = c.Get(ctx, "summary:7")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheWithoutTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c := NewMemory().WithClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	now = now.Add(24 * time.Hour)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Delete(ctx, "a", "missing"))

	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, time.Minute))
	value[0] = 'x'

	raw, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(raw))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	type payload struct {
		Total int `json:"total"`
	}
	require.NoError(t, SetJSON(ctx, c, "p", payload{Total: 5}, time.Minute))

	var got payload
	ok, err := GetJSON(ctx, c, "p", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, got.Total)

	ok, err = GetJSON(ctx, c, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewWithFallbackWithoutRedis(t *testing.T) {
	c := NewWithFallback(context.Background(), NewRedisClient("", "", 0))
	assert.IsType(t, &MemoryCache{}, c)
}

func TestMemoryCacheSetSweepsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory().WithClock(func() time.Time { return now })

	for i := 0; i < 50; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
	}
	now = now.Add(2 * time.Minute)
	require.NoError(t, c.Set(ctx, "fresh", []byte("v"), time.Minute))

	c.mu.Lock()
	size := len(c.items)
	c.mu.Unlock()
	assert.Equal(t, 1, size)
}
