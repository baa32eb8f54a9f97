package model

import (
	"time"
)

// UpdateModel 项目动态，只追加
type UpdateModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	GrantId     int64  `json:"grant_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Description string `json:"description" gorm:"type:text"`
}

// TableName 自定义表名
func (UpdateModel) TableName() string {
	return "grant_update"
}
