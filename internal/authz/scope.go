package authz

import "useradmin/internal/models"

// UserScopeKind 用户列表可见范围
type UserScopeKind int

const (
	// UserScopeNone 不可见任何用户
	UserScopeNone UserScopeKind = iota
	// UserScopeAll 全部用户
	UserScopeAll
	// UserScopeRegular 仅普通用户
	UserScopeRegular
	// UserScopeProject 同项目用户及全部超级管理员
	UserScopeProject
	// UserScopeSelf 仅本人
	UserScopeSelf
)

// UserScope 用户可见性谓词
type UserScope struct {
	Kind    UserScopeKind
	Project string
	UserID  uint
}

// Allows 判断单个用户是否在范围内
func (s UserScope) Allows(u *models.User) bool {
	if u == nil {
		return false
	}
	switch s.Kind {
	case UserScopeAll:
		return true
	case UserScopeRegular:
		return u.UserType == models.UserTypeRegular
	case UserScopeProject:
		return u.Project == s.Project || u.UserType == models.UserTypeSuperAdmin
	case UserScopeSelf:
		return u.ID == s.UserID
	default:
		return false
	}
}

// TenantScopeKind 租户列表可见范围
type TenantScopeKind int

const (
	TenantScopeNone TenantScopeKind = iota
	TenantScopeAll
	// TenantScopeNamed 仅名称匹配的租户
	TenantScopeNamed
)

// TenantScope 租户可见性谓词
type TenantScope struct {
	Kind TenantScopeKind
	Name string
}

func (s TenantScope) Allows(t *models.Tenant) bool {
	if t == nil {
		return false
	}
	switch s.Kind {
	case TenantScopeAll:
		return true
	case TenantScopeNamed:
		return t.Name == s.Name
	default:
		return false
	}
}
