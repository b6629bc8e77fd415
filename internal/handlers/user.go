package handlers

import (
	"useradmin/internal/middleware"
	"useradmin/internal/services"
	"useradmin/pkg/pagination"
	"useradmin/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// GetAll 用户列表，带 page 参数时分页
func (h *UserHandler) GetAll(c *gin.Context) {
	page := pagination.ParsePageParams(c)

	users, total, err := h.service.List(c.Request.Context(), middleware.CallerFrom(c), page)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if page == nil {
		response.Success(c, users)
		return
	}
	response.SuccessWithPage(c, users, pagination.NewPageInfo(page.Page, page.PageSize, total))
}

// GetByID 获取用户
func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.service.Get(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// Create 创建用户
func (h *UserHandler) Create(c *gin.Context) {
	var req services.UserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.Create(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// Update 更新用户
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.service.Update(c.Request.Context(), middleware.CallerFrom(c), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// Delete 删除用户
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.CallerFrom(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "User deleted successfully", nil)
}
