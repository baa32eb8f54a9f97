package model

import (
	"time"
)

// MilestoneModel 项目里程碑
type MilestoneModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	GrantId        int64      `json:"grant_id" gorm:"index;not null"`
	Title          string     `json:"title" gorm:"not null"`
	Description    string     `json:"description" gorm:"type:text"`
	DueDate        time.Time  `json:"due_date" gorm:"not null"`
	CompletionDate *time.Time `json:"completion_date"`
}

// TableName 自定义表名
func (MilestoneModel) TableName() string {
	return "milestone"
}
