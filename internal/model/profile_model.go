package model

import (
	"time"
)

// ProfileModel 用户档案
type ProfileModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Handle string `json:"handle" gorm:"uniqueIndex;not null"`
	Email  string `json:"email"`

	// 权限
	IsStaff               bool `json:"is_staff" gorm:"not null"`
	CanAddGrant           bool `json:"can_add_grant" gorm:"not null"`
	CanChangeSubscription bool `json:"can_change_subscription" gorm:"not null"`
}

// NewProfileModel 新用户默认可以创建 grant
func NewProfileModel(handle, email string) *ProfileModel {
	return &ProfileModel{Handle: handle, Email: email, CanAddGrant: true}
}

// TableName 自定义表名
func (ProfileModel) TableName() string {
	return "profile"
}

// MayAddGrant 是否允许创建 grant
func (p *ProfileModel) MayAddGrant() bool {
	return p != nil && (p.IsStaff || p.CanAddGrant)
}

// MayChangeSubscription 是否允许修改他人的订阅
func (p *ProfileModel) MayChangeSubscription() bool {
	return p != nil && (p.IsStaff || p.CanChangeSubscription)
}
