package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store is where report attachments are written.
type Store interface {
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	UseSSL    bool   `env:"MINIO_USE_SSL"`
	BaseURL   string `env:"MINIO_PUBLIC_BASE"` // 对外访问域名，可选
}

// Enabled reports whether an endpoint is configured.
func (c MinioConfig) Enabled() bool { return c.Endpoint != "" }

type MinioStore struct {
	cfg MinioConfig

	once   sync.Once
	cli    *minio.Client
	cliErr error
	bucket sync.Once
}

func NewMinioStore(cfg MinioConfig) *MinioStore {
	return &MinioStore{cfg: cfg}
}

func (m *MinioStore) client() (*minio.Client, error) {
	m.once.Do(func() {
		m.cli, m.cliErr = minio.New(m.cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(m.cfg.AccessKey, m.cfg.SecretKey, ""),
			Secure: m.cfg.UseSSL,
		})
	})
	return m.cli, m.cliErr
}

func (m *MinioStore) ensureBucket(ctx context.Context, cli *minio.Client) error {
	var err error
	m.bucket.Do(func() {
		var exists bool
		exists, err = cli.BucketExists(ctx, m.cfg.Bucket)
		if err == nil && !exists {
			err = cli.MakeBucket(ctx, m.cfg.Bucket, minio.MakeBucketOptions{})
		}
	})
	return err
}

func (m *MinioStore) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	cli, err := m.client()
	if err != nil {
		return err
	}
	if err := m.ensureBucket(ctx, cli); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", m.cfg.Bucket, err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = cli.PutObject(ctx, m.cfg.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *MinioStore) Delete(ctx context.Context, key string) error {
	cli, err := m.client()
	if err != nil {
		return err
	}
	return cli.RemoveObject(ctx, m.cfg.Bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinioStore) PublicURL(key string) string {
	if m.cfg.BaseURL != "" {
		return strings.TrimRight(m.cfg.BaseURL, "/") + "/" + key
	}
	// 回退使用 endpoint（直连需配置公共读策略）
	scheme := "http://"
	if m.cfg.UseSSL {
		scheme = "https://"
	}
	return scheme + m.cfg.Endpoint + "/" + m.cfg.Bucket + "/" + key
}
