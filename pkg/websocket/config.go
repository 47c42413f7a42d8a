package websocket

import (
	"time"

	"AlsitoQC/pkg/util"
)

// 默认配置值
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultConnectionTimeout = 60 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultMessageBufferSize = 16
	DefaultReadBufferSize    = 1024
	DefaultWriteBufferSize   = 1024
	DefaultMaxMessageSize    = 512
)

// 环境变量配置键
const (
	EnvWebSocketHeartbeatInterval = "WEBSOCKET_HEARTBEAT_INTERVAL"
	EnvWebSocketConnectionTimeout = "WEBSOCKET_CONNECTION_TIMEOUT"
	EnvWebSocketMessageBufferSize = "WEBSOCKET_MESSAGE_BUFFER_SIZE"
	EnvWebSocketReadBufferSize    = "WEBSOCKET_READ_BUFFER_SIZE"
	EnvWebSocketWriteBufferSize   = "WEBSOCKET_WRITE_BUFFER_SIZE"
	EnvWebSocketMaxMessageSize    = "WEBSOCKET_MAX_MESSAGE_SIZE"
	EnvWebSocketAllowedOrigins    = "WEBSOCKET_ALLOWED_ORIGINS"
)

// Config WebSocket配置
type Config struct {
	HeartbeatInterval time.Duration
	ConnectionTimeout time.Duration
	WriteTimeout      time.Duration
	MessageBufferSize int
	ReadBufferSize    int
	WriteBufferSize   int
	MaxMessageSize    int64
	// AllowedOrigins empty means any origin.
	AllowedOrigins []string
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		HeartbeatInterval: DefaultHeartbeatInterval,
		ConnectionTimeout: DefaultConnectionTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		MessageBufferSize: DefaultMessageBufferSize,
		ReadBufferSize:    DefaultReadBufferSize,
		WriteBufferSize:   DefaultWriteBufferSize,
		MaxMessageSize:    DefaultMaxMessageSize,
	}
}

// LoadConfigFromEnv 从环境变量加载WebSocket配置
func LoadConfigFromEnv() *Config {
	config := DefaultConfig()

	if d := util.GetDurationEnvOr(EnvWebSocketHeartbeatInterval, 0); d > 0 {
		config.HeartbeatInterval = d
	}
	if d := util.GetDurationEnvOr(EnvWebSocketConnectionTimeout, 0); d > 0 {
		config.ConnectionTimeout = d
	}
	if n := util.GetIntEnv(EnvWebSocketMessageBufferSize); n > 0 {
		config.MessageBufferSize = int(n)
	}
	if n := util.GetIntEnv(EnvWebSocketReadBufferSize); n > 0 {
		config.ReadBufferSize = int(n)
	}
	if n := util.GetIntEnv(EnvWebSocketWriteBufferSize); n > 0 {
		config.WriteBufferSize = int(n)
	}
	if n := util.GetIntEnv(EnvWebSocketMaxMessageSize); n > 0 {
		config.MaxMessageSize = n
	}
	config.AllowedOrigins = util.GetListEnv(EnvWebSocketAllowedOrigins)
	return config
}
