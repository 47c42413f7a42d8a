package config

import (
	"AlsitoQC/pkg/backup"
	"AlsitoQC/pkg/cache"
	"AlsitoQC/pkg/logger"
	"AlsitoQC/pkg/storage"
	"AlsitoQC/pkg/util"
	"log"
	"os"
	"time"
)

// config/config.go
type Config struct {
	Addr            string `env:"ADDR"`
	Mode            string `env:"MODE"`
	APIBaseURL      string `env:"API_BASE_URL"`
	DefaultLanguage string `env:"DEFAULT_LANGUAGE"`
	Log             logger.LogConfig
	Cache           cache.Config
	Minio           storage.MinioConfig

	// Report flow
	LoginTimeout      time.Duration `env:"LOGIN_TIMEOUT"`
	LocationTimeout   time.Duration `env:"LOCATION_TIMEOUT"`
	VerifyThreshold   int           `env:"VERIFY_THRESHOLD"`
	CrowdThreshold    int           `env:"CROWD_THRESHOLD"`
	MinLocationLength int           `env:"MIN_LOCATION_LENGTH"`
	FlowCacheSize     int           `env:"FLOW_CACHE_SIZE"`
	LoginRate         string        `env:"LOGIN_RATE"`
	GeoIPPath         string        `env:"GEOIP_PATH"`

	// Session persistence
	SessionDriver string `env:"SESSION_DRIVER"` // db | cache
	SessionSecret string `env:"SESSION_SECRET"`
	DBDriver      string `env:"DB_DRIVER"`
	DSN           string `env:"DSN"`

	// Housekeeping
	Backup             backup.Config
	AuditRetention     time.Duration `env:"AUDIT_RETENTION"`
	AuditPruneSchedule string        `env:"AUDIT_PRUNE_SCHEDULE"`
	FlowIdleTTL        time.Duration `env:"FLOW_IDLE_TTL"`

	// Responder alerts
	NotifyWebhookURL string   `env:"NOTIFY_WEBHOOK_URL"`
	NotifyTopics     []string `env:"NOTIFY_TOPICS"`
	SMSWebhookURL    string   `env:"SMS_WEBHOOK_URL"`
	SMSRecipients    []string `env:"SMS_RECIPIENTS"`
	SMSSignName      string   `env:"SMS_SIGN_NAME"`
	SMSTemplateCode  string   `env:"SMS_TEMPLATE_CODE"`
}

const (
	DefaultAPIBaseURL        = "https://orca-app-5wnax.ondigitalocean.app"
	DefaultLoginTimeout      = 5 * time.Second
	DefaultLocationTimeout   = 5 * time.Second
	DefaultVerifyThreshold   = 5
	DefaultCrowdThreshold    = 3
	DefaultMinLocationLength = 5
)

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = &Config{
		Addr:            util.GetEnvOr("ADDR", ":8080"),
		Mode:            util.GetEnvOr("MODE", "development"),
		APIBaseURL:      util.GetEnvOr("API_BASE_URL", DefaultAPIBaseURL),
		DefaultLanguage: util.GetEnvOr("DEFAULT_LANGUAGE", "en"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnvOr("LOG_MAX_SIZE", 100)),
			MaxAge:     int(util.GetIntEnvOr("LOG_MAX_AGE", 28)),
			MaxBackups: int(util.GetIntEnvOr("LOG_MAX_BACKUPS", 3)),
		},
		Cache: cache.Config{
			Type: util.GetEnvOr("CACHE_TYPE", "local"),
			Redis: cache.RedisConfig{
				Addr:         util.GetEnvOr("REDIS_ADDR", "localhost:6379"),
				Password:     util.GetEnv("REDIS_PASSWORD"),
				DB:           int(util.GetIntEnv("REDIS_DB")),
				PoolSize:     int(util.GetIntEnvOr("REDIS_POOL_SIZE", 10)),
				DialTimeout:  util.GetDurationEnvOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  util.GetDurationEnvOr("REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: util.GetDurationEnvOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
			},
			Local: cache.LocalConfig{
				MaxSize:           int(util.GetIntEnvOr("LOCAL_CACHE_MAX_SIZE", 1000)),
				DefaultExpiration: util.GetDurationEnvOr("LOCAL_CACHE_DEFAULT_EXPIRATION", 0),
				CleanupInterval:   util.GetDurationEnvOr("LOCAL_CACHE_CLEANUP_INTERVAL", 10*time.Minute),
			},
		},
		Minio: storage.MinioConfig{
			Endpoint:  util.GetEnv("MINIO_ENDPOINT"),
			AccessKey: util.GetEnv("MINIO_ACCESS_KEY"),
			SecretKey: util.GetEnv("MINIO_SECRET_KEY"),
			Bucket:    util.GetEnvOr("MINIO_BUCKET", "reports"),
			UseSSL:    util.GetBoolEnv("MINIO_USE_SSL"),
			BaseURL:   util.GetEnv("MINIO_PUBLIC_BASE"),
		},
		LoginTimeout:      util.GetDurationEnvOr("LOGIN_TIMEOUT", DefaultLoginTimeout),
		LocationTimeout:   util.GetDurationEnvOr("LOCATION_TIMEOUT", DefaultLocationTimeout),
		VerifyThreshold:   int(util.GetIntEnvOr("VERIFY_THRESHOLD", DefaultVerifyThreshold)),
		CrowdThreshold:    int(util.GetIntEnvOr("CROWD_THRESHOLD", DefaultCrowdThreshold)),
		MinLocationLength: int(util.GetIntEnvOr("MIN_LOCATION_LENGTH", DefaultMinLocationLength)),
		FlowCacheSize:     int(util.GetIntEnvOr("FLOW_CACHE_SIZE", 1024)),
		LoginRate:         util.GetEnvOr("LOGIN_RATE", "10-M"),
		GeoIPPath:         util.GetEnv("GEOIP_PATH"),
		SessionDriver:     util.GetEnvOr("SESSION_DRIVER", "db"),
		SessionSecret:     util.GetEnv("SESSION_SECRET"),
		DBDriver:          util.GetEnvOr("DB_DRIVER", "sqlite"),
		DSN:               util.GetEnvOr("DSN", "alsito.db"),
		Backup: backup.Config{
			Dir:      util.GetEnv("BACKUP_DIR"),
			Schedule: util.GetEnvOr("BACKUP_SCHEDULE", "@daily"),
			Keep:     int(util.GetIntEnvOr("BACKUP_KEEP", 7)),
		},
		AuditRetention:     util.GetDurationEnvOr("AUDIT_RETENTION", 30*24*time.Hour),
		AuditPruneSchedule: util.GetEnvOr("AUDIT_PRUNE_SCHEDULE", "@hourly"),
		FlowIdleTTL:        util.GetDurationEnvOr("FLOW_IDLE_TTL", 30*time.Minute),
		NotifyWebhookURL:   util.GetEnv("NOTIFY_WEBHOOK_URL"),
		NotifyTopics:       util.GetListEnv("NOTIFY_TOPICS"),
		SMSWebhookURL:      util.GetEnv("SMS_WEBHOOK_URL"),
		SMSRecipients:      util.GetListEnv("SMS_RECIPIENTS"),
		SMSSignName:        util.GetEnv("SMS_SIGN_NAME"),
		SMSTemplateCode:    util.GetEnv("SMS_TEMPLATE_CODE"),
	}
	return nil
}
