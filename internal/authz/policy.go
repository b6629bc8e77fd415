package authz

import (
	"useradmin/internal/models"
	"useradmin/pkg/config"
	"useradmin/pkg/errors"
)

// Authorizer 授权模型，所有实体服务共用
//
// 方法返回 nil 表示允许，否则返回 UNAUTHENTICATED 或 FORBIDDEN 错误。
type Authorizer interface {
	UserScope(c Caller) UserScope
	CanReadUser(c Caller, target *models.User) error
	CanManageUsers(c Caller) error
	CanCreateUser(c Caller, user *models.User) error
	CanUpdateUser(c Caller, current, next *models.User) error
	CanDeleteUser(c Caller, target *models.User) error

	TenantScope(c Caller) TenantScope
	CanReadTenant(c Caller, target *models.Tenant) error
	CanManageTenants(c Caller) error

	CanAccessApplications(c Caller) error
}

// Policy 基于用户类型的授权规则
type Policy struct {
	applicationsRequireAuth bool
}

var _ Authorizer = (*Policy)(nil)

func NewPolicy(cfg config.PolicyConfig) *Policy {
	return &Policy{
		applicationsRequireAuth: cfg.ApplicationsRequireAuth,
	}
}

// ========== 用户 ==========

func (p *Policy) UserScope(c Caller) UserScope {
	switch {
	case c.IsAnonymous():
		return UserScope{Kind: UserScopeRegular}
	case c.IsSuperAdmin():
		return UserScope{Kind: UserScopeAll}
	case c.IsProjectAdmin():
		return UserScope{Kind: UserScopeProject, Project: c.User.Project}
	default:
		return UserScope{Kind: UserScopeSelf, UserID: c.User.ID}
	}
}

// CanReadUser 单条读取与列表使用同一可见范围
func (p *Policy) CanReadUser(c Caller, target *models.User) error {
	if !p.UserScope(c).Allows(target) {
		return errors.Forbidden("Permission denied")
	}
	return nil
}

// CanManageUsers 增删改用户的前置条件：项目管理员或超级管理员
func (p *Policy) CanManageUsers(c Caller) error {
	return requireAdmin(c)
}

func (p *Policy) CanCreateUser(c Caller, user *models.User) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if user.UserType != models.UserTypeRegular && !c.IsSuperAdmin() {
		return errors.Forbidden("Only super admins can create admin users")
	}
	if c.IsProjectAdmin() && user.Project != c.User.Project {
		return errors.Forbidden("Project admins can only create users in their own project")
	}
	return nil
}

// CanUpdateUser 项目范围按更新前的记录判断
func (p *Policy) CanUpdateUser(c Caller, current, next *models.User) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if current.UserType != models.UserTypeRegular && !c.IsSuperAdmin() {
		return errors.Forbidden("Only super admins can update admin users")
	}
	if c.IsProjectAdmin() && current.Project != c.User.Project {
		return errors.Forbidden("Project admins can only update users in their own project")
	}
	if next.UserType != current.UserType && !c.IsSuperAdmin() {
		return errors.Forbidden("Only super admins can change user types")
	}
	return nil
}

func (p *Policy) CanDeleteUser(c Caller, target *models.User) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if target.UserType != models.UserTypeRegular && !c.IsSuperAdmin() {
		return errors.Forbidden("Only super admins can delete admin users")
	}
	if c.IsProjectAdmin() && target.Project != c.User.Project {
		return errors.Forbidden("Project admins can only delete users in their own project")
	}
	return nil
}

// ========== 租户 ==========

func (p *Policy) TenantScope(c Caller) TenantScope {
	switch {
	case c.IsAnonymous():
		return TenantScope{Kind: TenantScopeNone}
	case c.IsSuperAdmin():
		return TenantScope{Kind: TenantScopeAll}
	default:
		return TenantScope{Kind: TenantScopeNamed, Name: c.User.Tenant}
	}
}

// CanReadTenant 匿名可读任意租户，非超级管理员只能读自己的租户
func (p *Policy) CanReadTenant(c Caller, target *models.Tenant) error {
	if c.IsAnonymous() || c.IsSuperAdmin() {
		return nil
	}
	if target.Name != c.User.Tenant {
		return errors.Forbidden("Permission denied")
	}
	return nil
}

func (p *Policy) CanManageTenants(c Caller) error {
	if c.IsAnonymous() {
		return errors.Unauthenticated("Authentication required")
	}
	if !c.IsSuperAdmin() {
		return errors.Forbidden("Super admin permission required")
	}
	return nil
}

// ========== 申请记录 ==========

// CanAccessApplications 默认不做限制，开启 APPLICATIONS_REQUIRE_AUTH 后要求登录
func (p *Policy) CanAccessApplications(c Caller) error {
	if p.applicationsRequireAuth && c.IsAnonymous() {
		return errors.Unauthenticated("Authentication required")
	}
	return nil
}

func requireAdmin(c Caller) error {
	if c.IsAnonymous() {
		return errors.Unauthenticated("Authentication required")
	}
	if !c.IsAdmin() {
		return errors.Forbidden("Admin permission required")
	}
	return nil
}
