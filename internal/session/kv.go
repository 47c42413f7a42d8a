package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"AlsitoQC/pkg/cache"
)

// KV is a durable string store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Entry is the row used by DBKV.
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:128"`
	Value     string `gorm:"column:entry_value;type:text"`
	UpdatedAt time.Time
}

func (Entry) TableName() string { return "session_entries" }

// DBKV keeps entries in a SQL table through gorm.
type DBKV struct {
	db *gorm.DB
}

// NewDBKV migrates the entry table.
func NewDBKV(db *gorm.DB) (*DBKV, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate session entries: %w", err)
	}
	return &DBKV{db: db}, nil
}

func (s *DBKV) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (s *DBKV) Set(ctx context.Context, key, value string) error {
	e := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
	}).Create(&e).Error
}

func (s *DBKV) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{}).Error
}

// CacheKV adapts a cache backend; entries never expire.
type CacheKV struct {
	c cache.Cache
}

func NewCacheKV(c cache.Cache) *CacheKV { return &CacheKV{c: c} }

func (s *CacheKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.c.Get(ctx, key)
	if !ok {
		return "", false, nil
	}
	str, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("session entry %q has type %T", key, v)
	}
	return str, true, nil
}

func (s *CacheKV) Set(ctx context.Context, key, value string) error {
	return s.c.Set(ctx, key, value, 0)
}

func (s *CacheKV) Delete(ctx context.Context, key string) error {
	return s.c.Delete(ctx, key)
}

// ErrTampered is returned when a sealed value fails authentication.
var ErrTampered = errors.New("session: sealed value failed authentication")

// SecureKV seals values with NaCl secretbox before they reach the inner
// store.
type SecureKV struct {
	inner KV
	key   [32]byte
}

// NewSecureKV derives the box key from secret with SHA-256.
func NewSecureKV(inner KV, secret string) (*SecureKV, error) {
	if secret == "" {
		return nil, errors.New("session: empty secret")
	}
	return &SecureKV{inner: inner, key: sha256.Sum256([]byte(secret))}, nil
}

func (s *SecureKV) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < 24 {
		return "", false, ErrTampered
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return "", false, ErrTampered
	}
	return string(plain), true, nil
}

func (s *SecureKV) Set(ctx context.Context, key, value string) error {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return err
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(box))
}

func (s *SecureKV) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
