package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// RateLimiterConfig 限流配置
//
// Rate: "10-M"、Identifier: "ip"/"header"/"ip+route"、HeaderName: "X-Device-ID"
// PerRouteRates: {"/api/login": "5-M"}
// WhitelistCIDRs: ["10.0.0.0/8", "127.0.0.1/32"]
// SkipPaths: ["/metrics"] 前缀匹配
type RateLimiterConfig struct {
	Rate           string            `json:"rate"`            // e.g. "10-M", "1000-H"
	PerRouteRates  map[string]string `json:"per_route_rates"` // 路由覆盖速率
	Identifier     string            `json:"identifier"`      // ip|header|ip+route
	HeaderName     string            `json:"header_name"`     // 当 identifier=header 时使用
	WhitelistCIDRs []string          `json:"whitelist_cidrs"`
	SkipPaths      []string          `json:"skip_paths"`
	AddHeaders     bool              `json:"add_headers"`
	DenyStatus     int               `json:"deny_status"` // 默认 429
	DenyMessage    string            `json:"deny_message"`
}

// MetricsObserver 指标上报接口
type MetricsObserver interface {
	ObserveRateLimit(route string, allowed bool)
}

// RateLimiter 面向实例的限流器，按速率缓存 limiter
type RateLimiter struct {
	cfg            RateLimiterConfig
	store          limiter.Store
	observer       MetricsObserver
	logger         *zap.Logger
	limitersByRate map[string]*limiter.Limiter // rate字符串 -> limiter
	mu             sync.Mutex
	whiteCIDRs     []*net.IPNet
}

// NewRateLimiter uses an in-memory store when store is nil.
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) *RateLimiter {
	if store == nil {
		store = memory.NewStore()
	}
	l := &RateLimiter{
		cfg:            cfg,
		store:          store,
		logger:         zap.NewNop(),
		limitersByRate: make(map[string]*limiter.Limiter),
	}
	for _, c := range cfg.WhitelistCIDRs {
		if _, ipnet, err := net.ParseCIDR(strings.TrimSpace(c)); err == nil {
			l.whiteCIDRs = append(l.whiteCIDRs, ipnet)
		}
	}
	return l
}

// WithObserver 配置指标观察者
func (l *RateLimiter) WithObserver(observer MetricsObserver) *RateLimiter {
	l.observer = observer
	return l
}

func (l *RateLimiter) WithLogger(logger *zap.Logger) *RateLimiter {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Middleware 返回 Gin 中间件
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if pathSkipped(l.cfg.SkipPaths, route) {
			c.Next()
			return
		}
		clientIP := clientIPFromRequest(c)
		if ipListed(clientIP, l.whiteCIDRs) {
			c.Next()
			return
		}

		key := buildLimitKey(l.cfg, c, clientIP, route)
		lim := l.getLimiter(l.pickRate(route))

		lctx, err := lim.Get(c, key)
		if err != nil {
			// fail open
			l.logger.Warn("rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}
		if l.cfg.AddHeaders {
			setStandardHeaders(c, lctx)
		}
		if lctx.Reached {
			setRetryAfter(c, time.Until(time.Unix(lctx.Reset, 0)))
			l.report(route, false)
			denyTooMany(c, l.cfg)
			return
		}
		l.report(route, true)
		c.Next()
	}
}

func (l *RateLimiter) report(route string, allowed bool) {
	if l.observer != nil {
		l.observer.ObserveRateLimit(route, allowed)
	}
}

func (l *RateLimiter) getLimiter(rateStr string) *limiter.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limitersByRate[rateStr]; ok {
		return lim
	}
	r, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		l.logger.Warn("invalid rate, using 10-S", zap.String("rate", rateStr), zap.Error(err))
		r = limiter.Rate{Period: time.Second, Limit: 10}
	}
	lim := limiter.New(l.store, r)
	l.limitersByRate[rateStr] = lim
	return lim
}

func (l *RateLimiter) pickRate(route string) string {
	if r, ok := l.cfg.PerRouteRates[route]; ok && r != "" {
		return r
	}
	if l.cfg.Rate != "" {
		return l.cfg.Rate
	}
	return "10-S"
}

func pathSkipped(prefixes []string, p string) bool {
	for _, pref := range prefixes {
		if pref != "" && strings.HasPrefix(p, pref) {
			return true
		}
	}
	return false
}

func clientIPFromRequest(c *gin.Context) string {
	return strings.TrimPrefix(c.ClientIP(), "::ffff:")
}

func ipListed(ip string, nets []*net.IPNet) bool {
	pip := net.ParseIP(ip)
	if pip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(pip) {
			return true
		}
	}
	return false
}

func buildLimitKey(cfg RateLimiterConfig, c *gin.Context, ip, route string) string {
	switch cfg.Identifier {
	case "header":
		if hv := strings.TrimSpace(c.GetHeader(cfg.HeaderName)); hv != "" {
			return "hdr:" + cfg.HeaderName + ":" + hv
		}
		return "ip:" + ip
	case "ip+route":
		return "iprt:" + ip + ":" + route
	default: // ip
		return "ip:" + ip
	}
}

func setStandardHeaders(c *gin.Context, ctx limiter.Context) {
	c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
	resetSec := int(time.Until(time.Unix(ctx.Reset, 0)).Seconds())
	if resetSec < 0 {
		resetSec = 0
	}
	c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))
}

func setRetryAfter(c *gin.Context, d time.Duration) {
	sec := int(d.Seconds())
	if sec < 0 {
		sec = 0
	}
	c.Header("Retry-After", strconv.Itoa(sec))
}

func denyTooMany(c *gin.Context, cfg RateLimiterConfig) {
	status := cfg.DenyStatus
	if status == 0 {
		status = http.StatusTooManyRequests
	}
	msg := cfg.DenyMessage
	if msg == "" {
		msg = "Too Many Requests"
	}
	c.AbortWithStatusJSON(status, gin.H{"code": status, "msg": msg})
}
