package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"AlsitoQC/internal/auth"
	"AlsitoQC/internal/listeners"
	"AlsitoQC/internal/location"
	"AlsitoQC/internal/session"
	"AlsitoQC/internal/verify"
	"AlsitoQC/internal/workflow"
	"AlsitoQC/pkg/cache"
	"AlsitoQC/pkg/i18n"
	"AlsitoQC/pkg/metrics"
	"AlsitoQC/pkg/middleware"
	"AlsitoQC/pkg/sse"
	"AlsitoQC/pkg/storage"
	"AlsitoQC/pkg/websocket"
)

// Deps are the collaborators the router needs. Nil Storage disables
// attachments; nil GeoIP makes automatic location report services
// disabled; nil DB disables the audit trail; nil Dispatch sends no
// responder alerts.
type Deps struct {
	DB        *gorm.DB
	Auth      *auth.Client
	Sessions  *session.Store
	I18n      *i18n.I18nSupport
	Metrics   *metrics.Metrics
	GeoIP     *location.GeoIP
	Storage   storage.Store
	Cache     cache.Cache
	WebSocket *websocket.Config
	Dispatch  *listeners.DispatchListener
	Logger    *zap.Logger

	Signal            verify.Factory
	LocationTimeout   time.Duration
	MinLocationLength int
	FlowCacheSize     int
	LoginRate         string
}

type Handlers struct {
	deps   Deps
	flows  *lru.Cache[string, *workflow.Workflow]
	events *sse.Hub
	logger *zap.Logger
}

func NewHandlers(deps Deps) (*Handlers, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.I18n == nil {
		deps.I18n = i18n.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics()
	}
	if deps.Signal == nil {
		deps.Signal = verify.Taps(verify.DefaultTapThreshold)
	}
	if deps.FlowCacheSize <= 0 {
		deps.FlowCacheSize = 1024
	}
	h := &Handlers{
		deps:   deps,
		events: sse.NewHub(30*time.Second, deps.Logger),
		logger: deps.Logger,
	}
	flows, err := lru.NewWithEvict[string, *workflow.Workflow](deps.FlowCacheSize, func(id string, _ *workflow.Workflow) {
		h.events.CloseGroup(id)
		h.logger.Debug("report flow evicted", zap.String("flow", id))
	})
	if err != nil {
		return nil, err
	}
	h.flows = flows
	if deps.DB != nil {
		if err := middleware.MigrateReportAudit(deps.DB); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Register mounts every route on engine.
func (h *Handlers) Register(engine *gin.Engine) {
	engine.Use(metrics.MonitorMiddleware(h.deps.Metrics))
	engine.GET("/metrics", gin.WrapH(h.deps.Metrics.Handler()))

	r := engine.Group("/api")
	r.Use(middleware.LanguageMiddleware())

	h.registerSystemRoutes(r)
	h.registerAuthRoutes(r)
	h.registerFlowRoutes(r)
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)
	}
	r.GET("/emergencies", h.handleListEmergencies)
}

// Auth Module
func (h *Handlers) registerAuthRoutes(r *gin.RouterGroup) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:       h.deps.LoginRate,
		Identifier: "ip",
		AddHeaders: true,
	}, nil).WithObserver(h.deps.Metrics).WithLogger(h.logger)

	r.POST("/login", limiter.Middleware(), h.handleLogin)

	r.GET("/session", h.handleSession)

	r.DELETE("/session", h.handleLogout)
}

// Report Flow Module
func (h *Handlers) registerFlowRoutes(r *gin.RouterGroup) {
	flows := r.Group("flows")
	if h.deps.DB != nil {
		flows.Use(middleware.ReportAuditMiddleware(h.deps.DB, h.logger))
	}
	{
		flows.POST("", h.handleCreateFlow)

		flows.POST("/restore", h.handleRestoreFlow)

		flows.GET("/:id", h.handleGetFlow)

		flows.PUT("/:id/location", h.handleEditLocation)

		flows.PUT("/:id/description", h.handleEditDescription)

		flows.POST("/:id/locate", h.handleLocate)

		flows.POST("/:id/submit", h.handleSubmit)

		flows.POST("/:id/cancel", h.handleCancel)

		flows.POST("/:id/confirm", middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{Store: h.deps.Cache, HeaderOnly: true}), h.handleConfirm)

		flows.POST("/:id/tap", h.handleTap)

		flows.POST("/:id/back", h.handleBack)

		flows.POST("/:id/details", h.handleDetails)

		flows.POST("/:id/arrived", h.handleArrived)

		flows.POST("/:id/attachment", h.handleAttachment)

		flows.GET("/:id/events", h.handleEvents)

		flows.GET("/:id/crowd", h.handleCrowd)
	}
}
