package notify

import (
	"context"
	"fmt"

	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outbox 将通知写入发件箱表，由 Dispatcher 异步投递
type Outbox struct {
	db *gorm.DB
}

// NewOutbox 创建发件箱
func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db}
}

// Notify 写入一条待投递通知，同一 dedupe key 只保留一条；失败只记录日志
func (o *Outbox) Notify(ctx context.Context, kind model.NotificationKind, grant *model.GrantModel, sub *model.SubscriptionModel) {
	n, err := newNotification(kind, grant, sub)
	if err != nil {
		logger.Error("Failed to build %s notification: %v", kind, err)
		return
	}

	res := o.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(n)
	if res.Error != nil {
		logger.Error("Failed to enqueue %s notification for grant %d: %v", kind, grant.Id, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		logger.Debug("Notification %s already enqueued", n.DedupeKey)
		return
	}

	logger.Info("Notification %s enqueued for profile %d", n.DedupeKey, n.RecipientProfileId)
}

func newNotification(kind model.NotificationKind, grant *model.GrantModel, sub *model.SubscriptionModel) (*model.NotificationModel, error) {
	if grant == nil {
		return nil, fmt.Errorf("grant is required")
	}

	n := &model.NotificationModel{
		Kind:    kind,
		GrantId: grant.Id,
		Status:  model.NotificationStatusPending,
	}

	switch kind {
	case model.NotificationNewGrant, model.NotificationGrantCancellation:
		n.RecipientProfileId = grant.AdminProfileId
	case model.NotificationNewSupporter, model.NotificationSupportCancellation:
		if sub == nil {
			return nil, fmt.Errorf("subscription is required for %s", kind)
		}
		n.RecipientProfileId = grant.AdminProfileId
	case model.NotificationSubscriptionTerminated, model.NotificationThankYou:
		if sub == nil {
			return nil, fmt.Errorf("subscription is required for %s", kind)
		}
		n.RecipientProfileId = sub.ContributorProfileId
	default:
		return nil, fmt.Errorf("unknown notification kind %q", kind)
	}

	var subId int64
	if sub != nil {
		subId = sub.Id
		n.SubscriptionId = &subId
	}
	n.DedupeKey = DedupeKey(kind, grant.Id, subId)

	return n, nil
}

// DedupeKey 同一事件在同一 grant、订阅上只通知一次
func DedupeKey(kind model.NotificationKind, grantId, subscriptionId int64) string {
	return fmt.Sprintf("%s:%d:%d", kind, grantId, subscriptionId)
}
