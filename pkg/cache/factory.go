package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NewCache 创建缓存实例
func NewCache(config Config) (Cache, error) {
	switch strings.ToLower(config.Type) {
	case "", "local":
		return NewLocalCache(config.Local), nil
	case "gocache":
		return NewGoCache(config.Local), nil
	case "redis":
		return NewRedisCache(config.Redis)
	case "layered":
		return NewLayeredCache(config)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}

// NewLayeredCache puts a local LRU in front of redis.
func NewLayeredCache(config Config) (Cache, error) {
	distributed, err := NewRedisCache(config.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}
	return newLayered(NewLocalCache(config.Local), distributed, config.Local.DefaultExpiration), nil
}

func newLayered(local, distributed Cache, localTTL time.Duration) Cache {
	if localTTL <= 0 {
		localTTL = time.Minute
	}
	return &layeredCache{local: local, distributed: distributed, localTTL: localTTL}
}

// layeredCache 分层缓存实现
type layeredCache struct {
	local       Cache
	distributed Cache
	localTTL    time.Duration
}

// Get 从本地缓存获取，如果没有则从分布式缓存获取并回填本地缓存
func (lc *layeredCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if value, ok := lc.local.Get(ctx, key); ok {
		return value, true
	}
	if value, ok := lc.distributed.Get(ctx, key); ok {
		_ = lc.local.Set(ctx, key, value, lc.localTTL)
		return value, true
	}
	return nil, false
}

func (lc *layeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.distributed.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.local.Set(ctx, key, value, lc.localTTL)
}

// SetNX decides on the distributed layer, which every instance shares.
func (lc *layeredCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := lc.distributed.SetNX(ctx, key, value, expiration)
	if err != nil || !ok {
		return ok, err
	}
	return true, lc.local.Set(ctx, key, value, lc.localTTL)
}

func (lc *layeredCache) Delete(ctx context.Context, key string) error {
	if err := lc.local.Delete(ctx, key); err != nil {
		return err
	}
	return lc.distributed.Delete(ctx, key)
}

func (lc *layeredCache) Exists(ctx context.Context, key string) bool {
	return lc.local.Exists(ctx, key) || lc.distributed.Exists(ctx, key)
}

func (lc *layeredCache) Clear(ctx context.Context) error {
	if err := lc.local.Clear(ctx); err != nil {
		return err
	}
	return lc.distributed.Clear(ctx)
}

func (lc *layeredCache) GetWithTTL(ctx context.Context, key string) (interface{}, time.Duration, bool) {
	// the distributed layer owns the real TTL
	return lc.distributed.GetWithTTL(ctx, key)
}

func (lc *layeredCache) Close() error {
	if err := lc.local.Close(); err != nil {
		return err
	}
	return lc.distributed.Close()
}
