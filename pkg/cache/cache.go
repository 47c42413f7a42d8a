package cache

import (
	"context"
	"time"
)

// Cache is the key/value contract shared by every backend. A zero
// expiration means the backend default (no expiry for redis).
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// SetNX 仅在 key 不存在时写入，返回是否写入
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	Clear(ctx context.Context) error
	// GetWithTTL 获取值并返回剩余TTL（0 表示永不过期）
	GetWithTTL(ctx context.Context, key string) (interface{}, time.Duration, bool)
	Close() error
}

// Config 缓存配置
type Config struct {
	// local | gocache | redis | layered
	Type  string      `json:"type" env:"CACHE_TYPE"`
	Redis RedisConfig `json:"redis"`
	Local LocalConfig `json:"local"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr         string        `json:"addr" env:"REDIS_ADDR"`
	Password     string        `json:"password" env:"REDIS_PASSWORD"`
	DB           int           `json:"db" env:"REDIS_DB"`
	PoolSize     int           `json:"pool_size" env:"REDIS_POOL_SIZE"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"REDIS_WRITE_TIMEOUT"`
}

// LocalConfig 本地缓存配置
type LocalConfig struct {
	MaxSize           int           `json:"max_size" env:"LOCAL_CACHE_MAX_SIZE"`
	DefaultExpiration time.Duration `json:"default_expiration" env:"LOCAL_CACHE_DEFAULT_EXPIRATION"`
	CleanupInterval   time.Duration `json:"cleanup_interval" env:"LOCAL_CACHE_CLEANUP_INTERVAL"`
}
