package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Cache {
	config := LocalConfig{MaxSize: 100, CleanupInterval: time.Minute}
	all := map[string]Cache{
		"local":   NewLocalCache(config),
		"gocache": NewGoCache(config),
		"layered": newLayered(NewLocalCache(config), NewGoCache(config), time.Minute),
	}
	t.Cleanup(func() {
		for _, c := range all {
			_ = c.Close()
		}
	})
	return all
}

func TestCacheBackends(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		c := c
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "authToken", "abc", 0))

			v, ok := c.Get(ctx, "authToken")
			require.True(t, ok)
			assert.Equal(t, "abc", v)
			assert.True(t, c.Exists(ctx, "authToken"))

			_, ttl, ok := c.GetWithTTL(ctx, "authToken")
			require.True(t, ok)
			assert.Equal(t, time.Duration(0), ttl)

			require.NoError(t, c.Delete(ctx, "authToken"))
			assert.False(t, c.Exists(ctx, "authToken"))

			require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
			require.NoError(t, c.Clear(ctx))
			_, ok = c.Get(ctx, "a")
			assert.False(t, ok)
		})
	}
}

func TestSetNXSingleWinner(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		c := c
		t.Run(name, func(t *testing.T) {
			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := c.SetNX(ctx, "idem:k1", true, time.Minute)
					assert.NoError(t, err)
					if ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())

			require.NoError(t, c.Delete(ctx, "idem:k1"))
			ok, err := c.SetNX(ctx, "idem:k1", true, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestLocalSetNXAfterExpiry(t *testing.T) {
	c := NewLocalCache(LocalConfig{MaxSize: 10})
	defer c.Close()
	ctx := context.Background()
	ok, err := c.SetNX(ctx, "k", 1, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(20 * time.Millisecond)
	ok, err = c.SetNX(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalCacheExpiry(t *testing.T) {
	c := NewLocalCache(LocalConfig{MaxSize: 10})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "v", 20*time.Millisecond))
	_, ttl, ok := c.GetWithTTL(ctx, "short")
	require.True(t, ok)
	assert.Greater(t, ttl, time.Duration(0))

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get(ctx, "short")
	assert.False(t, ok)
}

func TestLocalCacheEvictsLeastRecent(t *testing.T) {
	c := NewLocalCache(LocalConfig{MaxSize: 2})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	_, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", 3, 0))

	assert.True(t, c.Exists(ctx, "a"))
	assert.False(t, c.Exists(ctx, "b"))
	assert.True(t, c.Exists(ctx, "c"))
}

func TestNewCacheRejectsUnknownType(t *testing.T) {
	_, err := NewCache(Config{Type: "memcached"})
	assert.Error(t, err)

	c, err := NewCache(Config{Type: "gocache"})
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
