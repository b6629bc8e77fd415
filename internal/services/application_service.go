package services

import (
	"context"
	"time"

	"useradmin/internal/authz"
	"useradmin/internal/models"
	apperrors "useradmin/pkg/errors"
	"useradmin/pkg/logger"
	"useradmin/pkg/pagination"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MonthLayout 月份筛选格式
const MonthLayout = "2006-01"

// ApplicationInput 创建/更新申请记录
type ApplicationInput struct {
	ApplicationDate models.Date              `json:"application_date"`
	TargetProduct   models.TargetProduct     `json:"target_product" validate:"required,oneof=C W"`
	Status          models.ApplicationStatus `json:"status" validate:"omitempty,oneof=PENDING COMPLETED"`
	UserID          uint                     `json:"user_id" validate:"required"`
}

// ApplicationFilter 列表筛选条件
type ApplicationFilter struct {
	Month   string // YYYY-MM
	Project string
}

// MonthRange 解析 YYYY-MM，返回 [当月1日, 次月1日)
func MonthRange(month string) (start, end models.Date, err error) {
	t, perr := time.Parse(MonthLayout, month)
	if perr != nil {
		return start, end, apperrors.Validation("Invalid month format. Use YYYY-MM")
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return models.NewDate(first), models.NewDate(first.AddDate(0, 1, 0)), nil
}

type ApplicationService struct {
	db    *gorm.DB
	authz authz.Authorizer
	users *UserService
}

func NewApplicationService(db *gorm.DB, az authz.Authorizer, users *UserService) *ApplicationService {
	return &ApplicationService{
		db:    db,
		authz: az,
		users: users,
	}
}

// viewQuery 关联用户表，带出 user_name 和 project
func (s *ApplicationService) viewQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("applications").
		Joins("LEFT JOIN users ON users.id = applications.user_id")
}

const viewColumns = "applications.id, applications.application_date, applications.target_product, " +
	"applications.status, applications.user_id, users.name AS user_name, users.project AS project"

// List 按月份、项目筛选申请记录
func (s *ApplicationService) List(ctx context.Context, caller authz.Caller, filter ApplicationFilter, page *pagination.PageParams) ([]*models.ApplicationView, int64, error) {
	if err := s.authz.CanAccessApplications(caller); err != nil {
		return nil, 0, err
	}

	query := s.viewQuery(ctx)
	if filter.Month != "" {
		start, end, err := MonthRange(filter.Month)
		if err != nil {
			return nil, 0, err
		}
		query = query.Where("applications.application_date >= ? AND applications.application_date < ?", start, end)
	}
	if filter.Project != "" {
		query = query.Where("users.project = ?", filter.Project)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeError(err, "")
	}

	views := make([]*models.ApplicationView, 0)
	err := query.Select(viewColumns).
		Scopes(page.Scope()).
		Order("applications.id").
		Scan(&views).Error
	if err != nil {
		return nil, 0, storeError(err, "")
	}
	return views, total, nil
}

// Get 获取单条申请记录
func (s *ApplicationService) Get(ctx context.Context, caller authz.Caller, id uint) (*models.ApplicationView, error) {
	if err := s.authz.CanAccessApplications(caller); err != nil {
		return nil, err
	}
	return s.view(ctx, id)
}

func (s *ApplicationService) view(ctx context.Context, id uint) (*models.ApplicationView, error) {
	var views []*models.ApplicationView
	err := s.viewQuery(ctx).
		Select(viewColumns).
		Where("applications.id = ?", id).
		Limit(1).
		Scan(&views).Error
	if err != nil {
		return nil, storeError(err, "")
	}
	if len(views) == 0 {
		return nil, apperrors.NotFound("Application not found")
	}
	return views[0], nil
}

// Create 新建申请记录，user_id 必须存在
func (s *ApplicationService) Create(ctx context.Context, caller authz.Caller, in ApplicationInput) (*models.ApplicationView, error) {
	if err := s.authz.CanAccessApplications(caller); err != nil {
		return nil, err
	}
	app, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"application_id": app.ID,
		"user_id":        app.UserID,
		"caller_id":      caller.ID(),
	}).Info("application created")
	return s.view(ctx, app.ID)
}

// create 校验并写入，不做权限判断（批量导入复用）
func (s *ApplicationService) create(ctx context.Context, in ApplicationInput) (*models.Application, error) {
	normalizeApplicationInput(&in)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	app := &models.Application{
		ApplicationDate: in.ApplicationDate,
		TargetProduct:   in.TargetProduct,
		Status:          in.Status,
		UserID:          in.UserID,
	}
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		return nil, storeError(err, "")
	}
	return app, nil
}

// Update 整体替换申请记录字段，状态可任意修改
func (s *ApplicationService) Update(ctx context.Context, caller authz.Caller, id uint, in ApplicationInput) (*models.ApplicationView, error) {
	if err := s.authz.CanAccessApplications(caller); err != nil {
		return nil, err
	}
	normalizeApplicationInput(&in)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, id).Error; err != nil {
		return nil, storeError(err, "Application not found")
	}
	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	app.ApplicationDate = in.ApplicationDate
	app.TargetProduct = in.TargetProduct
	app.Status = in.Status
	app.UserID = in.UserID
	if err := s.db.WithContext(ctx).Save(&app).Error; err != nil {
		return nil, storeError(err, "")
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"application_id": app.ID,
		"status":         app.Status,
		"caller_id":      caller.ID(),
	}).Info("application updated")
	return s.view(ctx, app.ID)
}

// Delete 删除申请记录
func (s *ApplicationService) Delete(ctx context.Context, caller authz.Caller, id uint) error {
	if err := s.authz.CanAccessApplications(caller); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Delete(&models.Application{}, id)
	if result.Error != nil {
		return storeError(result.Error, "")
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("Application not found")
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"application_id": id,
		"caller_id":      caller.ID(),
	}).Info("application deleted")
	return nil
}

// normalizeApplicationInput 填充缺省值：日期为当天，状态为申请中
func normalizeApplicationInput(in *ApplicationInput) {
	if in.ApplicationDate.IsZero() {
		in.ApplicationDate = models.Today()
	}
	if in.Status == "" {
		in.Status = models.ApplicationStatusPending
	}
}
