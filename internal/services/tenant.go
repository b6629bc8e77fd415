package services

import (
	"context"
	"errors"

	"useradmin/internal/authz"
	"useradmin/internal/models"
	apperrors "useradmin/pkg/errors"
	"useradmin/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TenantInput 创建/更新租户，update_cycle 缺省时创建取 30，更新保持原值
type TenantInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	UpdateCycle *int   `json:"update_cycle" validate:"omitempty,gt=0"`
}

type TenantService struct {
	db    *gorm.DB
	authz authz.Authorizer
	// renameCascade 改名时同步用户的 tenant 字段
	renameCascade bool
}

func NewTenantService(db *gorm.DB, az authz.Authorizer, renameCascade bool) *TenantService {
	return &TenantService{
		db:            db,
		authz:         az,
		renameCascade: renameCascade,
	}
}

// List 匿名返回空；非超级管理员只返回自己所在租户
func (s *TenantService) List(ctx context.Context, caller authz.Caller) ([]*models.Tenant, error) {
	tenants := make([]*models.Tenant, 0)

	scope := s.authz.TenantScope(caller)
	query := s.db.WithContext(ctx).Model(&models.Tenant{})
	switch scope.Kind {
	case authz.TenantScopeAll:
	case authz.TenantScopeNamed:
		query = query.Where("name = ?", scope.Name).Limit(1)
	default:
		return tenants, nil
	}

	if err := query.Order("id").Find(&tenants).Error; err != nil {
		return nil, storeError(err, "")
	}
	if err := s.fillUserCounts(ctx, tenants); err != nil {
		return nil, err
	}
	return tenants, nil
}

// Get 获取单个租户
func (s *TenantService) Get(ctx context.Context, caller authz.Caller, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, storeError(err, "Tenant not found")
	}
	if err := s.authz.CanReadTenant(caller, &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Create 创建租户，名称唯一
func (s *TenantService) Create(ctx context.Context, caller authz.Caller, in TenantInput) (*models.Tenant, error) {
	if err := s.authz.CanManageTenants(caller); err != nil {
		return nil, err
	}
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	tenant := &models.Tenant{
		Name:        in.Name,
		UpdateCycle: models.DefaultUpdateCycle,
	}
	if in.UpdateCycle != nil {
		tenant.UpdateCycle = *in.UpdateCycle
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Tenant{}).Where("name = ?", in.Name).Count(&count).Error; err != nil {
			return storeError(err, "")
		}
		if count > 0 {
			return errTenantNameTaken()
		}
		return tenantWriteError(tx.Create(tenant).Error)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"tenant_id": tenant.ID,
		"name":      tenant.Name,
	}).Info("tenant created")
	return tenant, nil
}

// Update 更新租户；改名不能与其他租户重名
func (s *TenantService) Update(ctx context.Context, caller authz.Caller, id uint, in TenantInput) (*models.Tenant, error) {
	if err := s.authz.CanManageTenants(caller); err != nil {
		return nil, err
	}
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	var tenant models.Tenant
	var cascaded int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tenant, id).Error; err != nil {
			return storeError(err, "Tenant not found")
		}

		oldName := tenant.Name
		if in.Name != oldName {
			var count int64
			if err := tx.Model(&models.Tenant{}).
				Where("name = ? AND id <> ?", in.Name, tenant.ID).
				Count(&count).Error; err != nil {
				return storeError(err, "")
			}
			if count > 0 {
				return errTenantNameTaken()
			}
		}

		tenant.Name = in.Name
		if in.UpdateCycle != nil {
			tenant.UpdateCycle = *in.UpdateCycle
		}
		if err := tenantWriteError(tx.Save(&tenant).Error); err != nil {
			return err
		}

		if s.renameCascade && oldName != tenant.Name {
			result := tx.Model(&models.User{}).Where("tenant = ?", oldName).Update("tenant", tenant.Name)
			if result.Error != nil {
				return storeError(result.Error, "")
			}
			cascaded = result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"tenant_id":      tenant.ID,
		"name":           tenant.Name,
		"users_renamed":  cascaded,
		"rename_cascade": s.renameCascade,
	}).Info("tenant updated")
	return &tenant, nil
}

// Delete 仍有用户引用该租户名时拒绝删除
func (s *TenantService) Delete(ctx context.Context, caller authz.Caller, id uint) error {
	if err := s.authz.CanManageTenants(caller); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant models.Tenant
		if err := tx.First(&tenant, id).Error; err != nil {
			return storeError(err, "Tenant not found")
		}

		var usersCount int64
		if err := tx.Model(&models.User{}).Where("tenant = ?", tenant.Name).Count(&usersCount).Error; err != nil {
			return storeError(err, "")
		}
		if usersCount > 0 {
			return apperrors.Conflict(
				"Cannot delete tenant with %d associated users. Please reassign or delete these users first.",
				usersCount)
		}
		return storeError(tx.Delete(&tenant).Error, "")
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).WithField("tenant_id", id).Info("tenant deleted")
	return nil
}

// fillUserCounts 统计每个租户被多少用户引用
func (s *TenantService) fillUserCounts(ctx context.Context, tenants []*models.Tenant) error {
	if len(tenants) == 0 {
		return nil
	}
	names := make([]string, 0, len(tenants))
	for _, t := range tenants {
		names = append(names, t.Name)
	}

	var rows []struct {
		Tenant string
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("tenant, COUNT(*) AS count").
		Where("tenant IN ?", names).
		Group("tenant").
		Scan(&rows).Error
	if err != nil {
		return storeError(err, "")
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Tenant] = r.Count
	}
	for _, t := range tenants {
		t.UserCount = counts[t.Name]
	}
	return nil
}

func errTenantNameTaken() error {
	return apperrors.Conflict("Tenant with this name already exists")
}

// tenantWriteError 并发写入时唯一索引兜底
func tenantWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errTenantNameTaken()
	}
	return storeError(err, "")
}
