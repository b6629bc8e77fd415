package models

// UserType 用户类型
type UserType string

const (
	UserTypeSuperAdmin   UserType = "SUPERADMIN"
	UserTypeProjectAdmin UserType = "PROJECT_ADMIN"
	UserTypeRegular      UserType = "REGULAR"
)

// Valid 是否为已知类型
func (t UserType) Valid() bool {
	switch t {
	case UserTypeSuperAdmin, UserTypeProjectAdmin, UserTypeRegular:
		return true
	default:
		return false
	}
}

// IsAdmin 项目管理员或超级管理员
func (t UserType) IsAdmin() bool {
	return t == UserTypeSuperAdmin || t == UserTypeProjectAdmin
}

// User 用户模型
//
// Tenant 按租户名称关联，不是外键。
type User struct {
	BaseModel
	Name                string   `json:"name" gorm:"not null;size:100"`
	Email               string   `json:"email" gorm:"uniqueIndex;not null;size:100"`
	Tenant              string   `json:"tenant" gorm:"not null;size:100;index"`
	Department          string   `json:"department" gorm:"not null;size:100"`
	Project             string   `json:"project" gorm:"not null;size:100;index"`
	Role                string   `json:"role" gorm:"not null;size:100"`
	UserType            UserType `json:"user_type" gorm:"size:20;not null;default:'REGULAR';index"`
	TabsAccepted        int      `json:"tabs_accepted" gorm:"not null;default:0"`
	PremiumRequestsUsed int      `json:"premium_requests_used" gorm:"not null;default:0"`

	Applications []Application `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

func (u *User) IsSuperAdmin() bool {
	return u.UserType == UserTypeSuperAdmin
}

func (u *User) IsProjectAdmin() bool {
	return u.UserType == UserTypeProjectAdmin
}

func (u *User) IsRegular() bool {
	return u.UserType == UserTypeRegular
}
