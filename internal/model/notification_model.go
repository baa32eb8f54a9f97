package model

import (
	"time"
)

// NotificationKind 通知类型
type NotificationKind string

const (
	NotificationNewGrant               NotificationKind = "new_grant"                // 新建 grant，通知管理员
	NotificationGrantCancellation      NotificationKind = "grant_cancellation"       // grant 取消，通知管理员
	NotificationSubscriptionTerminated NotificationKind = "subscription_terminated"  // grant 取消导致订阅终止，通知资助者
	NotificationNewSupporter           NotificationKind = "new_supporter"            // 新的资助者，通知管理员
	NotificationThankYou               NotificationKind = "thank_you_for_supporting" // 感谢资助者
	NotificationSupportCancellation    NotificationKind = "support_cancellation"     // 资助者取消订阅，通知管理员
)

// NotificationStatus 通知投递状态
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending" // 待投递
	NotificationStatusSent    NotificationStatus = "sent"    // 已投递
	NotificationStatusFailed  NotificationStatus = "failed"  // 超过重试次数
)

// NotificationModel 通知发件箱
type NotificationModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Kind               NotificationKind   `json:"kind" gorm:"not null"`
	GrantId            int64              `json:"grant_id" gorm:"index;not null"`
	Grant              *GrantModel        `json:"grant,omitempty" gorm:"foreignKey:GrantId"`
	SubscriptionId     *int64             `json:"subscription_id"`
	Subscription       *SubscriptionModel `json:"subscription,omitempty" gorm:"foreignKey:SubscriptionId"`
	RecipientProfileId int64              `json:"recipient_profile_id" gorm:"not null"`
	Recipient          *ProfileModel      `json:"recipient,omitempty" gorm:"foreignKey:RecipientProfileId"`
	DedupeKey          string             `json:"dedupe_key" gorm:"uniqueIndex;not null"`
	Status             NotificationStatus `json:"status" gorm:"index;default:'pending'"`
	Attempts           int                `json:"attempts" gorm:"default:0"`
	LastError          string             `json:"last_error" gorm:"type:text"`
	SentAt             *time.Time         `json:"sent_at"`
}

// TableName 自定义表名
func (NotificationModel) TableName() string {
	return "notification"
}
