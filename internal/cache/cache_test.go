package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, time.Minute)
	v, ok := c.Get(ctx, "a")

	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "short", 1, time.Second)
	c.Set(ctx, "forever", 2, 0)

	now = now.Add(2 * time.Second)

	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)

	v, ok := c.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_PurgeExpired(t *testing.T) {
	c := New[int, string](0)
	defer c.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, 1, "x", time.Second)
	c.Set(ctx, 2, "y", time.Hour)
	now = now.Add(time.Minute)

	c.purgeExpired()
	assert.Equal(t, 1, c.Len())
}

func TestCache_Eviction(t *testing.T) {
	c := NewWithSize[int, int](2, 0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, 1, 1, 0)
	c.Set(ctx, 2, 2, 0)
	c.Set(ctx, 3, 3, 0)

	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}
