package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// TargetProduct 目标产品
type TargetProduct string

const (
	TargetProductC TargetProduct = "C"
	TargetProductW TargetProduct = "W"
)

func (p TargetProduct) Valid() bool {
	return p == TargetProductC || p == TargetProductW
}

// ApplicationStatus 申请状态，可任意修改，无状态机约束
type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "PENDING"
	ApplicationStatusCompleted ApplicationStatus = "COMPLETED"
)

func (s ApplicationStatus) Valid() bool {
	return s == ApplicationStatusPending || s == ApplicationStatusCompleted
}

// 旧版界面使用的中文状态名
var legacyStatusLabels = map[string]ApplicationStatus{
	"申请中": ApplicationStatusPending,
	"已完成": ApplicationStatusCompleted,
}

// ParseApplicationStatus 解析状态，兼容中文状态名
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	if status := ApplicationStatus(s); status.Valid() {
		return status, true
	}
	status, ok := legacyStatusLabels[s]
	return status, ok
}

// DateLayout 申请日期格式
const DateLayout = "2006-01-02"

// Application 申请记录
type Application struct {
	BaseModel
	ApplicationDate Date              `json:"application_date" gorm:"not null;index"`
	TargetProduct   TargetProduct     `json:"target_product" gorm:"size:1;not null"`
	Status          ApplicationStatus `json:"status" gorm:"size:20;not null;default:'PENDING'"`
	UserID          uint              `json:"user_id" gorm:"not null;index"`

	User *User `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 表名
func (a *Application) TableName() string {
	return "applications"
}

// ApplicationView 带用户信息的申请记录，user_name/project 查询时关联得出
type ApplicationView struct {
	ID              uint              `json:"id"`
	ApplicationDate Date              `json:"application_date"`
	TargetProduct   TargetProduct     `json:"target_product"`
	Status          ApplicationStatus `json:"status"`
	UserID          uint              `json:"user_id"`
	UserName        *string           `json:"user_name"`
	Project         *string           `json:"project"`
}

// Date 日历日期，JSON 中为 YYYY-MM-DD
type Date struct {
	datatypes.Date
}

// NewDate 取 UTC 日期零点
func NewDate(t time.Time) Date {
	return Date{datatypes.Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))}
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

// Today 当天日期
func Today() Date {
	return NewDate(time.Now())
}

func (d Date) Time() time.Time {
	return time.Time(d.Date)
}

func (d Date) IsZero() bool {
	return d.Time().IsZero()
}

func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
