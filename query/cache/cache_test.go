package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := NewLRU[int](2, 0, WithEvictCallback(func(key string, _ int) {
		evicted = append(evicted, key)
	}))

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("c", 3, 0)

	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, evicted)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Size)
	assert.InDelta(t, 50.0, stats.HitRate, 0.001)
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v", 0)
	c.Set("forever", "v", -1)
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
	_, ok = c.Get("forever")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestLRUInvalidate(t *testing.T) {
	var evicted []string
	c := NewLRU[int](10, 0, WithEvictCallback(func(key string, _ int) {
		evicted = append(evicted, key)
	}))
	c.Set("SELECT 1", 1, 0)
	c.Set("SELECT 2", 2, 0)

	c.Invalidate("SELECT 1")
	c.Invalidate("SELECT 3")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []string{"SELECT 1"}, evicted)
	_, ok := c.Get("SELECT 1")
	assert.False(t, ok)
}

func TestLeasePoolReusesResources(t *testing.T) {
	created, destroyed := 0, 0
	p := NewLeasePool(1, func(context.Context) (int, error) {
		created++
		return created, nil
	}, func(int) error {
		destroyed++
		return nil
	})
	ctx := context.Background()

	a, err := p.Acquire(ctx)
	require.NoError(t, err)
	b, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.Value(), b.Value())
	assert.Equal(t, 2, p.Leased())

	require.NoError(t, a.Release())
	require.NoError(t, a.Release())
	require.NoError(t, b.Release())
	assert.Equal(t, 0, p.Leased())
	assert.Equal(t, 1, p.Idle())
	assert.Equal(t, 1, destroyed)

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.Value(), c.Value())
	c.Discard()
	require.NoError(t, c.Release())
	assert.Equal(t, 2, destroyed)

	require.NoError(t, p.Close())
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, ErrPoolClosed)
}
