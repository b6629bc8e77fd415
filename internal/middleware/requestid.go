package middleware

import (
	"time"

	"useradmin/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestID 为每个请求分配ID，并把带 request_id 的日志条目放入上下文
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set(RequestIDKey, requestID)

		entry := logger.GetLogger().WithField(RequestIDKey, requestID)
		setRequestLogger(c, entry)

		start := time.Now()
		c.Next()

		logger.FromGin(c).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}).Info("request completed")
	}
}

// setRequestLogger 同时更新 gin.Context 和 request context 中的日志条目
func setRequestLogger(c *gin.Context, entry *logrus.Entry) {
	c.Set(logger.GinKey, entry)
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), entry))
}
