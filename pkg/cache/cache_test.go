package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.nowFn = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "forever", "v", 0))
	now = now.Add(24 * time.Hour)
	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)

}

func TestMemoryCacheSetNX(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.nowFn = func() time.Time { return now }

	stored, err := c.SetNX(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = c.SetNX(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)
	val, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "first", val)

	now = now.Add(time.Minute)
	stored, err = c.SetNX(ctx, "k", "third", time.Minute)
	require.NoError(t, err)
	assert.True(t, stored, "an expired entry counts as absent")
}

func TestStatusCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryCache()
	s := NewStatusCache(mem, time.Minute)

	_, found, err := s.GetStatus(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetStatus(ctx, "user_1", true))
	active, found, err := s.GetStatus(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, active)

	raw, _, _ := mem.Get(ctx, "subscription_status:user_1")
	assert.Equal(t, "1", raw)

}

func TestStatusCacheFillKeepsWriterValue(t *testing.T) {
	ctx := context.Background()
	s := NewStatusCache(NewMemoryCache(), time.Minute)

	stored, err := s.FillStatus(ctx, "user_1", false)
	require.NoError(t, err)
	assert.True(t, stored)

	require.NoError(t, s.SetStatus(ctx, "user_1", true))

	stored, err = s.FillStatus(ctx, "user_1", false)
	require.NoError(t, err)
	assert.False(t, stored)
	active, found, err := s.GetStatus(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, active)
}

func TestStatusCacheCorruptValue(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryCache()
	require.NoError(t, mem.Set(ctx, statusKey("user_1"), "yes", 0))

	_, found, err := NewStatusCache(mem, time.Minute).GetStatus(ctx, "user_1")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisCache(ctx, NewRedisCacheConfig{Address: "127.0.0.1:1"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
