package middleware

import (
	"strconv"
	"strings"

	"useradmin/internal/authz"
	"useradmin/internal/services"
	apperrors "useradmin/pkg/errors"
	"useradmin/pkg/logger"
	"useradmin/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader 调用方身份请求头，值为用户ID
	UserIDHeader = "user-id"
	CallerKey    = "caller"
)

// Identity 解析 user-id 请求头，未携带时为匿名调用方
func Identity(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID *uint
		if raw := strings.TrimSpace(c.GetHeader(UserIDHeader)); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || id == 0 {
				response.FromError(c, apperrors.Validation("Invalid user-id header"))
				c.Abort()
				return
			}
			v := uint(id)
			userID = &v
		}

		caller, err := users.ResolveCaller(c.Request.Context(), userID)
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}

		c.Set(CallerKey, caller)
		if !caller.IsAnonymous() {
			setRequestLogger(c, logger.FromGin(c).WithField("caller_id", caller.ID()))
		}
		c.Next()
	}
}

// CallerFrom 取出当前调用方，没有时视为匿名
func CallerFrom(c *gin.Context) authz.Caller {
	if v, ok := c.Get(CallerKey); ok {
		if caller, ok := v.(authz.Caller); ok {
			return caller
		}
	}
	return authz.Anonymous()
}
