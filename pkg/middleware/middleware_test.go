package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AlsitoQC/pkg/util"
)

func init() { gin.SetMode(gin.TestMode) }

type rlRecorder struct{ allowed, denied int }

func (r *rlRecorder) ObserveRateLimit(route string, allowed bool) {
	if allowed {
		r.allowed++
	} else {
		r.denied++
	}
}

func TestRateLimiterDeniesOverLimit(t *testing.T) {
	rec := &rlRecorder{}
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:          "100-M",
		PerRouteRates: map[string]string{"/login": "2-M"},
		AddHeaders:    true,
		SkipPaths:     []string{"/metrics"},
	}, nil).WithObserver(rec)

	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
		if i == 0 {
			assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, 2, rec.allowed)
	assert.Equal(t, 1, rec.denied)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiterWhitelist(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: "1-M", WhitelistCIDRs: []string{"192.0.2.0/24"}}, nil)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil)) // RemoteAddr 192.0.2.1
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestLanguageMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(LanguageMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, Lang(c)) })

	tests := []struct {
		query, header, want string
	}{
		{"", "", "en"},
		{"fil", "", "fil"},
		{"", "tl-PH,en;q=0.8", "fil"},
		{"", "fr-FR,en;q=0.5", "en"},
		{"en", "fil", "en"},
		{"zz-invalid-", "", "en"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?lang="+tt.query, nil)
		if tt.header != "" {
			req.Header.Set("Accept-Language", tt.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Body.String(), "query=%q header=%q", tt.query, tt.header)
	}
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	r := gin.New()
	r.POST("/confirm", IdempotencyMiddleware(IdempotencyConfig{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(key, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/confirm", strings.NewReader(body))
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send("k1", ""))
	assert.Equal(t, http.StatusConflict, send("k1", ""))
	assert.Equal(t, http.StatusOK, send("k2", ""))
	assert.Equal(t, http.StatusOK, send("", `{"a":1}`))
	assert.Equal(t, http.StatusConflict, send("", `{"a":1}`))
}

func TestIdempotencyConcurrentSameKey(t *testing.T) {
	var handled atomic.Int32
	release := make(chan struct{})
	r := gin.New()
	r.POST("/confirm", IdempotencyMiddleware(IdempotencyConfig{HeaderOnly: true}), func(c *gin.Context) {
		handled.Add(1)
		<-release
		c.Status(http.StatusOK)
	})

	const n = 8
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/confirm", nil)
			req.Header.Set("Idempotency-Key", "same")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			codes <- w.Code
		}()
	}
	require.Eventually(t, func() bool { return len(codes) == n-1 }, 2*time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
	close(codes)

	var ok, conflict int
	for code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflict)
	assert.Equal(t, int32(1), handled.Load())
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	var calls int
	r := gin.New()
	r.POST("/confirm", IdempotencyMiddleware(IdempotencyConfig{HeaderOnly: true}), func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.Status(http.StatusBadGateway)
			return
		}
		c.Status(http.StatusOK)
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/confirm", nil)
		req.Header.Set("Idempotency-Key", "k1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusBadGateway, send())
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusConflict, send())
}

func TestReportAuditMiddleware(t *testing.T) {
	db, err := util.OpenDatabase("sqlite", "")
	require.NoError(t, err)
	require.NoError(t, MigrateReportAudit(db))

	r := gin.New()
	r.Use(ReportAuditMiddleware(db, nil))
	r.POST("/api/flows/:id/confirm", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/flows/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/api/flows/abc/confirm", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/flows/abc", nil))

	var rows []ReportAudit
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "abc", rows[0].FlowID)
	assert.Equal(t, "/api/flows/:id/confirm", rows[0].Action)
	assert.Equal(t, http.StatusOK, rows[0].Status)
	assert.True(t, rows[0].Mobile)
	assert.Contains(t, rows[0].OperatingSystem, "Android")
}

func TestPruneReportAudit(t *testing.T) {
	db, err := util.OpenDatabase("sqlite", "")
	require.NoError(t, err)
	require.NoError(t, MigrateReportAudit(db))

	now := time.Now()
	require.NoError(t, db.Create(&ReportAudit{Action: "/old", RequestMethod: "POST", CreatedAt: now.Add(-48 * time.Hour)}).Error)
	require.NoError(t, db.Create(&ReportAudit{Action: "/new", RequestMethod: "POST", CreatedAt: now}).Error)

	n, err := PruneReportAudit(context.Background(), db, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var rows []ReportAudit
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "/new", rows[0].Action)
}
