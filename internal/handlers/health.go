package handlers

import (
	"context"
	"net/http"
	"time"

	"useradmin/pkg/logger"
	"useradmin/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Liveness 进程存活
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Health 带数据库检查的健康状态
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	data := map[string]interface{}{
		"status":    "ok",
		"database":  "ok",
		"timestamp": time.Now(),
	}

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		logger.FromGin(c).WithError(err).Warn("database ping failed")
		response.Error(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	response.Success(c, data)
}
