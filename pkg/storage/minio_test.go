package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicURL(t *testing.T) {
	s := NewMinioStore(MinioConfig{Endpoint: "minio.local:9000", Bucket: "reports"})
	assert.Equal(t, "http://minio.local:9000/reports/a/b.jpg", s.PublicURL("a/b.jpg"))

	s = NewMinioStore(MinioConfig{Endpoint: "minio.local:9000", Bucket: "reports", UseSSL: true})
	assert.Equal(t, "https://minio.local:9000/reports/x.png", s.PublicURL("x.png"))

	s = NewMinioStore(MinioConfig{Endpoint: "minio.local:9000", Bucket: "reports", BaseURL: "https://cdn.example.org/"})
	assert.Equal(t, "https://cdn.example.org/x.png", s.PublicURL("x.png"))
}

func TestEnabled(t *testing.T) {
	assert.False(t, MinioConfig{}.Enabled())
	assert.True(t, MinioConfig{Endpoint: "minio:9000"}.Enabled())
}
