package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"useradmin/internal/middleware"
	"useradmin/internal/services"
	apperrors "useradmin/pkg/errors"
	"useradmin/pkg/metrics"
	"useradmin/pkg/pagination"
	"useradmin/pkg/response"

	"github.com/gin-gonic/gin"
)

// multipart 表单除文件外的余量
const uploadOverhead = 1 << 20

type ApplicationHandler struct {
	service       *services.ApplicationService
	importService *services.ImportService
	metrics       *metrics.Metrics
	maxUpload     int64
}

func NewApplicationHandler(service *services.ApplicationService, importService *services.ImportService, m *metrics.Metrics, maxUploadMB int) *ApplicationHandler {
	return &ApplicationHandler{
		service:       service,
		importService: importService,
		metrics:       m,
		maxUpload:     int64(maxUploadMB) << 20,
	}
}

// GetAll 申请列表，支持 month=YYYY-MM 和 project 筛选
func (h *ApplicationHandler) GetAll(c *gin.Context) {
	filter := services.ApplicationFilter{
		Month:   c.Query("month"),
		Project: c.Query("project"),
	}
	page := pagination.ParsePageParams(c)

	apps, total, err := h.service.List(c.Request.Context(), middleware.CallerFrom(c), filter, page)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if page == nil {
		response.Success(c, apps)
		return
	}
	response.SuccessWithPage(c, apps, pagination.NewPageInfo(page.Page, page.PageSize, total))
}

// GetByID 获取申请记录
func (h *ApplicationHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	app, err := h.service.Get(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, app)
}

// Create 创建申请记录
func (h *ApplicationHandler) Create(c *gin.Context) {
	var req services.ApplicationInput
	if !bindJSON(c, &req) {
		return
	}

	app, err := h.service.Create(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, app)
}

// Update 更新申请记录
func (h *ApplicationHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.ApplicationInput
	if !bindJSON(c, &req) {
		return
	}

	app, err := h.service.Update(c.Request.Context(), middleware.CallerFrom(c), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, app)
}

// Delete 删除申请记录
func (h *ApplicationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.CallerFrom(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "Application deleted successfully", nil)
}

// Import 上传 xlsx/csv 批量导入，表单字段 file
func (h *ApplicationHandler) Import(c *gin.Context) {
	limit := h.maxUpload + uploadOverhead
	if c.Request.ContentLength > limit {
		response.FromError(c, h.errTooLarge())
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.FromError(c, h.errTooLarge())
			return
		}
		response.BadRequest(c, "File is required in form field \"file\"")
		return
	}
	if fileHeader.Size > h.maxUpload {
		response.FromError(c, h.errTooLarge())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.FromError(c, apperrors.Internal("open upload", err))
		return
	}
	defer file.Close()

	summary, err := h.importService.Import(c.Request.Context(), middleware.CallerFrom(c), fileHeader.Filename, file)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.metrics.RecordImport(summary.Imported, summary.Skipped)

	response.SuccessWithMessage(c,
		fmt.Sprintf("Imported %d applications, skipped %d rows", summary.Imported, summary.Skipped),
		summary)
}

func (h *ApplicationHandler) errTooLarge() error {
	return apperrors.Validation("File exceeds the %d MB upload limit", h.maxUpload>>20)
}

// Template 下载导入模板，format=xlsx|csv，默认 xlsx
func (h *ApplicationHandler) Template(c *gin.Context) {
	tpl, err := h.importService.Template(c.Query("format"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tpl.Filename))
	c.Data(http.StatusOK, tpl.ContentType, tpl.Content)
}
