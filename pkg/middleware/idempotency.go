package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"AlsitoQC/pkg/cache"
)

type IdempotencyConfig struct {
	HeaderName string        // Idempotency-Key 的请求头名
	TTL        time.Duration // 决定一段时间内重复请求的拒绝窗口
	Store      cache.Cache
	// HeaderOnly skips requests without the header instead of hashing
	// the body.
	HeaderOnly bool
}

// IdempotencyMiddleware rejects a repeated request on the same route
// within TTL with 409. Without a header the key is the body hash.
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Idempotency-Key"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Store == nil {
		cfg.Store = cache.NewGoCache(cache.LocalConfig{DefaultExpiration: cfg.TTL, CleanupInterval: time.Minute})
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" && cfg.HeaderOnly {
			c.Next()
			return
		}
		if key == "" {
			// 兜底以请求体生成哈希作为幂等键
			b, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(strings.NewReader(string(b)))
			h := sha256.Sum256(b)
			key = hex.EncodeToString(h[:])
		}
		key = "idem:" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
		stored, err := cfg.Store.SetNX(c, key, true, cfg.TTL)
		if err != nil {
			// 缓存不可用时放行
			c.Next()
			return
		}
		if !stored {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"code": http.StatusConflict, "msg": "duplicate request"})
			return
		}
		c.Next()
		// 服务端失败允许用同一个 key 重试
		if c.Writer.Status() >= http.StatusInternalServerError {
			_ = cfg.Store.Delete(c, key)
		}
	}
}
