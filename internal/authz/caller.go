package authz

import "useradmin/internal/models"

// Caller 请求方身份，User 为 nil 表示匿名
type Caller struct {
	User *models.User
}

// Anonymous 未提供身份的调用方
func Anonymous() Caller {
	return Caller{}
}

// AsUser 已认证用户
func AsUser(u *models.User) Caller {
	return Caller{User: u}
}

func (c Caller) IsAnonymous() bool {
	return c.User == nil
}

func (c Caller) IsSuperAdmin() bool {
	return c.User != nil && c.User.IsSuperAdmin()
}

func (c Caller) IsProjectAdmin() bool {
	return c.User != nil && c.User.IsProjectAdmin()
}

// IsAdmin 项目管理员或超级管理员
func (c Caller) IsAdmin() bool {
	return c.User != nil && c.User.UserType.IsAdmin()
}

// ID 匿名时为 0
func (c Caller) ID() uint {
	if c.User == nil {
		return 0
	}
	return c.User.ID
}
