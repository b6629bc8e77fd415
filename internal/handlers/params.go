package handlers

import (
	"strconv"

	"useradmin/pkg/response"

	"github.com/gin-gonic/gin"
)

// parseID 解析路径参数 :id，失败时已写入 400
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

// bindJSON 解析请求体，失败时已写入 400
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
