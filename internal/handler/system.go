package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"AlsitoQC/internal/models"
	"AlsitoQC/pkg/response"
)

// HealthCheck 健康检查接口
func (h *Handlers) HealthCheck(c *gin.Context) {
	if h.deps.DB != nil {
		sqlDB, err := h.deps.DB.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
			return
		}
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "flows": h.flows.Len()})
}

func (h *Handlers) handleListEmergencies(c *gin.Context) {
	response.Success(c, "ok", models.EmergencyOptions())
}
