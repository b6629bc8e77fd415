package logger

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type contextKey string

const entryKey contextKey = "logger"

// GinKey gin.Context 中保存请求日志的键
const GinKey = "logger"

// WithContext 把带请求字段的日志条目放入 context
func WithContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, entryKey, entry)
}

// FromContext 取出请求日志条目，没有则返回全局日志
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(entryKey).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(GetLogger())
}

// FromGin 从 gin.Context 取请求日志条目
func FromGin(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(GinKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(GetLogger())
}
