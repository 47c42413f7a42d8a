package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReportAudit 记录报告操作日志
type ReportAudit struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;not null" json:"id"`
	FlowID          string    `gorm:"size:64;index" json:"flow_id"`
	Action          string    `gorm:"size:128;not null" json:"action"` // 路由，如 /api/flows/:id/confirm
	RequestMethod   string    `gorm:"size:16;not null" json:"request_method"`
	Status          int       `json:"status"`
	IPAddress       string    `gorm:"size:64" json:"ip_address"`
	UserAgent       string    `json:"user_agent"`
	Device          string    `gorm:"size:64" json:"device"`
	Browser         string    `gorm:"size:128" json:"browser"`
	OperatingSystem string    `gorm:"size:128" json:"operating_system"`
	Mobile          bool      `json:"mobile"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// MigrateReportAudit creates the audit table.
func MigrateReportAudit(db *gorm.DB) error {
	return db.AutoMigrate(&ReportAudit{})
}

// PruneReportAudit deletes audit rows created before cutoff.
func PruneReportAudit(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&ReportAudit{})
	return res.RowsAffected, res.Error
}

// ReportAuditMiddleware writes one row per mutating request after the
// handler ran. Write failures are logged, never surfaced.
func ReportAuditMiddleware(db *gorm.DB, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method == "GET" {
			return
		}

		uaHeader := c.GetHeader("User-Agent")
		ua := user_agent.New(uaHeader)
		browser, version := ua.Browser()
		action := c.FullPath()
		if action == "" {
			action = c.Request.URL.Path
		}
		entry := ReportAudit{
			FlowID:          c.Param("id"),
			Action:          action,
			RequestMethod:   c.Request.Method,
			Status:          c.Writer.Status(),
			IPAddress:       c.ClientIP(),
			UserAgent:       uaHeader,
			Device:          ua.Platform(),
			Browser:         browser + " " + version,
			OperatingSystem: ua.OS(),
			Mobile:          ua.Mobile(),
		}
		if err := db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
			logger.Warn("write report audit failed", zap.String("action", action), zap.Error(err))
		}
	}
}
