package models

// DefaultUpdateCycle 默认数据更新周期（天）
const DefaultUpdateCycle = 30

// Tenant 租户模型 - 贫血模型，只包含数据结构
type Tenant struct {
	BaseModel
	Name        string `json:"name" gorm:"uniqueIndex;not null;size:100"`
	UpdateCycle int    `json:"update_cycle" gorm:"not null;default:30"`
	UserCount   int64  `json:"user_count,omitempty" gorm:"-"` // 引用该租户的用户数，不存储
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}
