package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	handlers "AlsitoQC/internal/handler"
	"AlsitoQC/internal/auth"
	"AlsitoQC/internal/listeners"
	"AlsitoQC/internal/location"
	"AlsitoQC/internal/session"
	"AlsitoQC/internal/verify"
	"AlsitoQC/pkg/backup"
	"AlsitoQC/pkg/cache"
	"AlsitoQC/pkg/config"
	"AlsitoQC/pkg/i18n"
	"AlsitoQC/pkg/logger"
	"AlsitoQC/pkg/metrics"
	"AlsitoQC/pkg/middleware"
	"AlsitoQC/pkg/notification"
	"AlsitoQC/pkg/scheduler"
	"AlsitoQC/pkg/storage"
	"AlsitoQC/pkg/util"
	"AlsitoQC/pkg/websocket"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}
	cfg := config.GlobalConfig

	lg, err := logger.Init(cfg.Log, cfg.Mode)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	db, err := util.OpenDatabase(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return err
	}

	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer c.Close()

	sessions, err := openSessions(cfg, db, c, lg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	lg.Info("startup route", zap.String("route", sessions.Route(ctx)))

	tr, err := i18n.NewI18nSupport(cfg.DefaultLanguage)
	if err != nil {
		return err
	}
	m := metrics.NewMetrics()

	authClient := auth.NewClient(cfg.APIBaseURL, sessions,
		auth.WithTimeout(cfg.LoginTimeout),
		auth.WithMessages(tr.For(cfg.DefaultLanguage)),
		auth.WithLogger(lg.Named("auth")),
		auth.WithObserver(m),
	)

	var geo *location.GeoIP
	if cfg.GeoIPPath != "" {
		if geo, err = location.OpenGeoIP(cfg.GeoIPPath); err != nil {
			return err
		}
		defer geo.Close()
	}

	var store storage.Store
	if cfg.Minio.Enabled() {
		store = storage.NewMinioStore(cfg.Minio)
	}

	h, err := handlers.NewHandlers(handlers.Deps{
		DB:                db,
		Auth:              authClient,
		Sessions:          sessions,
		I18n:              tr,
		Metrics:           m,
		GeoIP:             geo,
		Storage:           store,
		Cache:             c,
		WebSocket:         websocket.LoadConfigFromEnv(),
		Dispatch:          openDispatch(cfg, lg),
		Logger:            lg.Named("http"),
		Signal:            verify.Combine(verify.Taps(cfg.VerifyThreshold), verify.Crowd(cfg.CrowdThreshold)),
		LocationTimeout:   cfg.LocationTimeout,
		MinLocationLength: cfg.MinLocationLength,
		FlowCacheSize:     cfg.FlowCacheSize,
		LoginRate:         cfg.LoginRate,
	})
	if err != nil {
		return err
	}

	stopJobs, err := startHousekeeping(ctx, cfg, db, h, lg.Named("jobs"))
	if err != nil {
		return err
	}
	defer stopJobs()

	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	h.Register(engine)

	srv := &http.Server{Addr: cfg.Addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openSessions picks the general store by SESSION_DRIVER and seals the
// token when SESSION_SECRET is set.
func openSessions(cfg *config.Config, db *gorm.DB, c cache.Cache, lg *zap.Logger) (*session.Store, error) {
	var general session.KV
	switch cfg.SessionDriver {
	case "cache":
		general = session.NewCacheKV(c)
	default:
		kv, err := session.NewDBKV(db)
		if err != nil {
			return nil, err
		}
		general = kv
	}

	secure := general
	if cfg.SessionSecret != "" {
		sealed, err := session.NewSecureKV(general, cfg.SessionSecret)
		if err != nil {
			return nil, err
		}
		secure = sealed
	} else {
		lg.Warn("SESSION_SECRET not set, auth token stored unsealed")
	}
	return session.NewStore(secure, general, lg.Named("session")), nil
}

// openDispatch returns nil when no alert channel is configured.
func openDispatch(cfg *config.Config, lg *zap.Logger) *listeners.DispatchListener {
	var n notification.Multi
	if cfg.NotifyWebhookURL != "" {
		n = append(n, notification.NewPush(notification.PushConfig{Topics: cfg.NotifyTopics},
			&notification.WebhookClient{URL: cfg.NotifyWebhookURL}))
	}
	if cfg.SMSWebhookURL != "" && len(cfg.SMSRecipients) > 0 {
		n = append(n, notification.NewSMS(notification.SMSConfig{
			SignName:     cfg.SMSSignName,
			TemplateCode: cfg.SMSTemplateCode,
			Recipients:   cfg.SMSRecipients,
		}, &notification.WebhookClient{URL: cfg.SMSWebhookURL}))
	}
	if len(n) == 0 {
		return nil
	}
	return listeners.NewDispatchListener(n, 10*time.Second, lg.Named("dispatch"))
}

// startHousekeeping runs idle flow pruning, audit retention and sqlite
// backups. The returned func stops them.
func startHousekeeping(ctx context.Context, cfg *config.Config, db *gorm.DB, h *handlers.Handlers, lg *zap.Logger) (func(), error) {
	sched := scheduler.New(ctx)
	if cfg.FlowIdleTTL > 0 {
		sched.Every(time.Minute, scheduler.FuncJob(func(context.Context) {
			h.PruneIdleFlows(cfg.FlowIdleTTL)
		}))
	}

	cr := scheduler.NewCron(ctx, time.Local, lg)
	if cfg.AuditRetention > 0 {
		prune := scheduler.FuncJob(func(ctx context.Context) {
			n, err := middleware.PruneReportAudit(ctx, db, time.Now().Add(-cfg.AuditRetention))
			if err != nil {
				lg.Warn("audit prune failed", zap.Error(err))
				return
			}
			lg.Debug("audit pruned", zap.Int64("rows", n))
		})
		if _, err := cr.Add(cfg.AuditPruneSchedule, prune); err != nil {
			sched.Stop()
			return nil, err
		}
		// 停机期间错过的清理在启动后补一次
		sched.OnceAfter(30*time.Second, prune)
	}
	if cfg.Backup.Dir != "" {
		if _, err := cr.Add(cfg.Backup.Schedule, backup.NewJob(db, cfg.DBDriver, cfg.Backup, lg)); err != nil {
			sched.Stop()
			return nil, err
		}
	}
	cr.Start()
	for _, e := range cr.Entries() {
		lg.Info("cron job scheduled", zap.Int("id", int(e.ID)), zap.Time("next", e.Next))
	}
	return func() {
		cr.Stop()
		sched.Stop()
	}, nil
}
