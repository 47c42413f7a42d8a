package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type localEntry struct {
	value     interface{}
	expiresAt time.Time
}

func (e localEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// localCache is a size-bounded LRU with per-key expiry.
type localCache struct {
	config LocalConfig
	items  *lru.Cache[string, localEntry]
	stop   chan struct{}
	once   sync.Once
	nx     sync.Mutex // serialises SetNX
}

// NewLocalCache 创建本地缓存
func NewLocalCache(config LocalConfig) Cache {
	if config.MaxSize <= 0 {
		config.MaxSize = 1000
	}
	items, _ := lru.New[string, localEntry](config.MaxSize) // only fails on size <= 0
	lc := &localCache{config: config, items: items, stop: make(chan struct{})}
	if config.CleanupInterval > 0 {
		go lc.janitor(config.CleanupInterval)
	}
	return lc
}

func (lc *localCache) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-lc.stop:
			return
		case now := <-t.C:
			for _, k := range lc.items.Keys() {
				if e, ok := lc.items.Peek(k); ok && e.expired(now) {
					lc.items.Remove(k)
				}
			}
		}
	}
}

func (lc *localCache) lookup(key string) (localEntry, bool) {
	e, ok := lc.items.Get(key)
	if !ok {
		return localEntry{}, false
	}
	if e.expired(time.Now()) {
		lc.items.Remove(key)
		return localEntry{}, false
	}
	return e, true
}

func (lc *localCache) Get(ctx context.Context, key string) (interface{}, bool) {
	e, ok := lc.lookup(key)
	return e.value, ok
}

func (lc *localCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration == 0 {
		expiration = lc.config.DefaultExpiration
	}
	e := localEntry{value: value}
	if expiration > 0 {
		e.expiresAt = time.Now().Add(expiration)
	}
	lc.items.Add(key, e)
	return nil
}

func (lc *localCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	lc.nx.Lock()
	defer lc.nx.Unlock()
	if _, ok := lc.lookup(key); ok {
		return false, nil
	}
	return true, lc.Set(ctx, key, value, expiration)
}

func (lc *localCache) Delete(ctx context.Context, key string) error {
	lc.items.Remove(key)
	return nil
}

func (lc *localCache) Exists(ctx context.Context, key string) bool {
	_, ok := lc.lookup(key)
	return ok
}

func (lc *localCache) Clear(ctx context.Context) error {
	lc.items.Purge()
	return nil
}

func (lc *localCache) GetWithTTL(ctx context.Context, key string) (interface{}, time.Duration, bool) {
	e, ok := lc.lookup(key)
	if !ok {
		return nil, 0, false
	}
	var ttl time.Duration
	if !e.expiresAt.IsZero() {
		ttl = time.Until(e.expiresAt)
		if ttl < 0 {
			ttl = 0
		}
	}
	return e.value, ttl, true
}

func (lc *localCache) Close() error {
	lc.once.Do(func() { close(lc.stop) })
	return nil
}
