package services

import (
	"context"
	"errors"

	"useradmin/internal/authz"
	"useradmin/internal/models"
	apperrors "useradmin/pkg/errors"
	"useradmin/pkg/logger"
	"useradmin/pkg/pagination"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserInput 创建/更新用户的完整字段（更新为整体替换）
type UserInput struct {
	Name                string          `json:"name" validate:"required,max=100"`
	Email               string          `json:"email" validate:"required,email,max=100"`
	Tenant              string          `json:"tenant" validate:"required,max=100"`
	Department          string          `json:"department" validate:"max=100"`
	Project             string          `json:"project" validate:"max=100"`
	Role                string          `json:"role" validate:"max=100"`
	UserType            models.UserType `json:"user_type" validate:"omitempty,oneof=SUPERADMIN PROJECT_ADMIN REGULAR"`
	TabsAccepted        int             `json:"tabs_accepted" validate:"gte=0"`
	PremiumRequestsUsed int             `json:"premium_requests_used" validate:"gte=0"`
}

func (in *UserInput) apply(u *models.User) {
	u.Name = in.Name
	u.Email = in.Email
	u.Tenant = in.Tenant
	u.Department = in.Department
	u.Project = in.Project
	u.Role = in.Role
	u.UserType = in.UserType
	u.TabsAccepted = in.TabsAccepted
	u.PremiumRequestsUsed = in.PremiumRequestsUsed
}

type UserService struct {
	db    *gorm.DB
	authz authz.Authorizer
}

func NewUserService(db *gorm.DB, az authz.Authorizer) *UserService {
	return &UserService{
		db:    db,
		authz: az,
	}
}

// ResolveCaller 根据请求头中的用户ID确定调用方，nil 为匿名
func (s *UserService) ResolveCaller(ctx context.Context, userID *uint) (authz.Caller, error) {
	if userID == nil {
		return authz.Anonymous(), nil
	}
	user, err := s.GetByID(ctx, *userID)
	if err != nil {
		return authz.Caller{}, err
	}
	return authz.AsUser(user), nil
}

// GetByID 不做权限判断，供内部解析引用
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, storeError(err, "User not found")
	}
	return &user, nil
}

// ========== 基础CRUD方法 ==========

// List 按调用方可见范围列出用户，page 为 nil 时返回全部
func (s *UserService) List(ctx context.Context, caller authz.Caller, page *pagination.PageParams) ([]*models.User, int64, error) {
	query := userScope(s.authz.UserScope(caller))(s.db.WithContext(ctx).Model(&models.User{})).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeError(err, "")
	}

	users := make([]*models.User, 0)
	if err := query.Scopes(page.Scope()).Order("id").Find(&users).Error; err != nil {
		return nil, 0, storeError(err, "")
	}
	return users, total, nil
}

// Get 获取单个用户
func (s *UserService) Get(ctx context.Context, caller authz.Caller, id uint) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanReadUser(caller, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Create 创建用户，user_type 缺省为普通用户；先校验调用方角色，再校验请求体
func (s *UserService) Create(ctx context.Context, caller authz.Caller, in UserInput) (*models.User, error) {
	if err := s.authz.CanManageUsers(caller); err != nil {
		return nil, err
	}
	if in.UserType == "" {
		in.UserType = models.UserTypeRegular
	}
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	user := &models.User{}
	in.apply(user)
	if err := s.authz.CanCreateUser(caller, user); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("User with this email already exists")
		}
		return nil, storeError(err, "")
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"user_id":   user.ID,
		"caller_id": caller.ID(),
	}).Info("user created")
	return user, nil
}

// Update 整体替换用户字段；角色检查先于记录查找
func (s *UserService) Update(ctx context.Context, caller authz.Caller, id uint, in UserInput) (*models.User, error) {
	if err := s.authz.CanManageUsers(caller); err != nil {
		return nil, err
	}
	if in.UserType == "" {
		in.UserType = models.UserTypeRegular
	}
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return storeError(err, "User not found")
		}

		next := user
		in.apply(&next)
		if err := s.authz.CanUpdateUser(caller, &user, &next); err != nil {
			return err
		}

		if err := tx.Save(&next).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("User with this email already exists")
			}
			return storeError(err, "")
		}
		user = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"user_id":   user.ID,
		"caller_id": caller.ID(),
	}).Info("user updated")
	return &user, nil
}

// Delete 删除用户，其申请记录保留
func (s *UserService) Delete(ctx context.Context, caller authz.Caller, id uint) error {
	if err := s.authz.CanManageUsers(caller); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return storeError(err, "User not found")
		}
		if err := s.authz.CanDeleteUser(caller, &user); err != nil {
			return err
		}
		return storeError(tx.Delete(&user).Error, "")
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"user_id":   id,
		"caller_id": caller.ID(),
	}).Info("user deleted")
	return nil
}

// userScope 把可见范围转换为查询条件
func userScope(scope authz.UserScope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch scope.Kind {
		case authz.UserScopeAll:
			return db
		case authz.UserScopeRegular:
			return db.Where("user_type = ?", models.UserTypeRegular)
		case authz.UserScopeProject:
			return db.Where("project = ? OR user_type = ?", scope.Project, models.UserTypeSuperAdmin)
		case authz.UserScopeSelf:
			return db.Where("id = ?", scope.UserID)
		default:
			return db.Where("1 = 0")
		}
	}
}
