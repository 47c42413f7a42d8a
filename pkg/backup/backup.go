package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const filePrefix = "alsito_backup_"

// Config 备份配置
type Config struct {
	Dir      string `env:"BACKUP_DIR"`
	Schedule string `env:"BACKUP_SCHEDULE"`
	Keep     int    `env:"BACKUP_KEEP"` // 保留最近 N 份，<=0 不清理
}

// Job snapshots the session and audit database. It implements
// scheduler.Job.
type Job struct {
	db     *gorm.DB
	driver string
	cfg    Config
	logger *zap.Logger
}

func NewJob(db *gorm.DB, driver string, cfg Config, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{db: db, driver: driver, cfg: cfg, logger: logger}
}

func (j *Job) Run(ctx context.Context) {
	dst, err := j.Snapshot(ctx)
	if err != nil {
		j.logger.Warn("backup failed", zap.Error(err))
		return
	}
	j.logger.Info("backup completed", zap.String("file", dst))
}

// Snapshot writes a consistent copy of the database and prunes old ones.
// Only sqlite is supported; server databases have their own tooling.
func (j *Job) Snapshot(ctx context.Context) (string, error) {
	switch j.driver {
	case "", "sqlite":
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER for backup: %s", j.driver)
	}
	if err := os.MkdirAll(j.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	dst := filepath.Join(j.cfg.Dir, filePrefix+time.Now().UTC().Format("20060102T150405.000000000")+".db")
	// VACUUM INTO 在线生成一致快照
	if err := j.db.WithContext(ctx).Exec("VACUUM INTO ?", dst).Error; err != nil {
		return "", fmt.Errorf("sqlite backup: %w", err)
	}
	if err := j.prune(); err != nil {
		j.logger.Warn("backup prune failed", zap.Error(err))
	}
	return dst, nil
}

func (j *Job) prune() error {
	if j.cfg.Keep <= 0 {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(j.cfg.Dir, filePrefix+"*.db"))
	if err != nil {
		return err
	}
	if len(files) <= j.cfg.Keep {
		return nil
	}
	// 文件名含时间戳，字典序即时间序
	sort.Strings(files)
	for _, f := range files[:len(files)-j.cfg.Keep] {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}
