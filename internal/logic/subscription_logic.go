package logic

import (
	"context"
	"errors"
	"fmt"

	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultFrequency     = 30
	defaultFrequencyUnit = "days"
)

// SubscriptionLogic 订阅业务逻辑
type SubscriptionLogic struct {
	db       *gorm.DB
	grants   *GrantLogic
	notifier Notifier
}

// NewSubscriptionLogic 创建订阅业务逻辑
func NewSubscriptionLogic(db *gorm.DB, grants *GrantLogic, notifier Notifier) *SubscriptionLogic {
	return &SubscriptionLogic{db: db, grants: grants, notifier: notifier}
}

// FundInput 资助请求中的订阅字段
type FundInput struct {
	SubscriptionHash     string
	ContributorSignature string
	ContributorAddress   string
	AmountPerPeriod      decimal.Decimal
	RealPeriodSeconds    int64
	Frequency            int64
	FrequencyUnit        string
	TokenAddress         string
	TokenSymbol          string
	GasPrice             decimal.Decimal
	Network              string
	NewApproveTxId       string
}

// CancelInput 取消订阅时提交的交易
type CancelInput struct {
	EndApproveTxId string
	CancelTxId     string
}

// CheckFundable 依次检查 grant 是否有效、是否资助自己、是否已有有效订阅
func (s *SubscriptionLogic) CheckFundable(ctx context.Context, id int64, slug string, actor *model.ProfileModel) (*model.GrantModel, error) {
	grant, err := s.grants.GetGrant(ctx, id, slug)
	if err != nil {
		return nil, err
	}
	if err := checkFundable(s.db.WithContext(ctx), grant, actor); err != nil {
		return grant, err
	}
	return grant, nil
}

func checkFundable(db *gorm.DB, grant *model.GrantModel, actor *model.ProfileModel) error {
	if !grant.Active {
		return grantEndedError(grant)
	}
	if grant.IsAdmin(actor) {
		return ownGrantError(grant)
	}
	if actor == nil {
		return nil
	}

	var count int64
	if err := db.Model(&model.SubscriptionModel{}).
		Where("grant_id = ? AND contributor_profile_id = ? AND active = ?", grant.Id, actor.Id, true).
		Count(&count).Error; err != nil {
		return fmt.Errorf("查询订阅失败: %w", err)
	}
	if count > 0 {
		return subscriptionExistsError(grant)
	}
	return nil
}

// Fund 创建订阅，通知管理员并感谢资助者
func (s *SubscriptionLogic) Fund(ctx context.Context, id int64, slug string, actor *model.ProfileModel, in FundInput) (*model.GrantModel, *model.SubscriptionModel, error) {
	if actor == nil {
		return nil, nil, fmt.Errorf("%w: fund grant", ErrPermissionDenied)
	}

	grant, err := s.CheckFundable(ctx, id, slug, actor)
	if err != nil {
		return grant, nil, err
	}

	sub := newSubscription(grant, actor, in)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkFundable(tx, grant, actor); err != nil {
			return err
		}
		if err := tx.Create(sub).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return subscriptionExistsError(grant)
			}
			return fmt.Errorf("创建订阅失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return grant, nil, err
	}

	sub.Grant = grant
	sub.ContributorProfile = actor
	logger.Info("Subscription %d created for grant %d by profile %d", sub.Id, grant.Id, actor.Id)

	s.notifier.Notify(ctx, model.NotificationNewSupporter, grant, sub)
	s.notifier.Notify(ctx, model.NotificationThankYou, grant, sub)

	return grant, sub, nil
}

func newSubscription(grant *model.GrantModel, actor *model.ProfileModel, in FundInput) *model.SubscriptionModel {
	if in.RealPeriodSeconds <= 0 {
		in.RealPeriodSeconds = model.DefaultPeriodSeconds
	}
	if in.Frequency <= 0 {
		in.Frequency = defaultFrequency
	}
	if in.FrequencyUnit == "" {
		in.FrequencyUnit = defaultFrequencyUnit
	}
	if in.Network == "" {
		in.Network = grant.Network
	}

	return &model.SubscriptionModel{
		GrantId:              grant.Id,
		ContributorProfileId: actor.Id,
		SubscriptionHash:     in.SubscriptionHash,
		ContributorSignature: in.ContributorSignature,
		ContributorAddress:   in.ContributorAddress,
		AmountPerPeriod:      in.AmountPerPeriod,
		RealPeriodSeconds:    in.RealPeriodSeconds,
		Frequency:            in.Frequency,
		FrequencyUnit:        in.FrequencyUnit,
		TokenAddress:         in.TokenAddress,
		TokenSymbol:          in.TokenSymbol,
		GasPrice:             in.GasPrice,
		Network:              in.Network,
		NewApproveTxId:       in.NewApproveTxId,
		Active:               true,
	}
}

// GetCancellable 获取 grant 下仍然有效的订阅
func (s *SubscriptionLogic) GetCancellable(ctx context.Context, id int64, slug string, subscriptionId int64) (*model.GrantModel, *model.SubscriptionModel, error) {
	grant, err := s.grants.GetGrant(ctx, id, slug)
	if err != nil {
		return nil, nil, err
	}

	var sub model.SubscriptionModel
	if err := s.db.WithContext(ctx).
		Preload("ContributorProfile").
		Where("id = ? AND grant_id = ?", subscriptionId, grant.Id).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return grant, nil, fmt.Errorf("%w: subscription %d", ErrNotFound, subscriptionId)
		}
		return grant, nil, fmt.Errorf("获取订阅失败: %w", err)
	}
	sub.Grant = grant

	if !sub.Active {
		return grant, &sub, subscriptionCancelledError(grant)
	}
	return grant, &sub, nil
}

// CancelSubscription 取消订阅，只有资助者本人或有修改订阅权限的用户可以操作
func (s *SubscriptionLogic) CancelSubscription(ctx context.Context, id int64, slug string, subscriptionId int64, actor *model.ProfileModel, in CancelInput) (*model.GrantModel, *model.SubscriptionModel, error) {
	grant, sub, err := s.GetCancellable(ctx, id, slug, subscriptionId)
	if err != nil {
		return grant, sub, err
	}

	if actor == nil || (actor.Id != sub.ContributorProfileId && !actor.MayChangeSubscription()) {
		return grant, sub, fmt.Errorf("%w: cancel subscription %d", ErrPermissionDenied, sub.Id)
	}

	res := s.db.WithContext(ctx).Model(&model.SubscriptionModel{}).
		Where("id = ? AND active = ?", sub.Id, true).
		Updates(map[string]interface{}{
			"end_approve_tx_id": in.EndApproveTxId,
			"cancel_tx_id":      in.CancelTxId,
			"active":            false,
		})
	if res.Error != nil {
		return grant, sub, fmt.Errorf("取消订阅失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return grant, sub, subscriptionCancelledError(grant)
	}

	sub.EndApproveTxId = in.EndApproveTxId
	sub.CancelTxId = in.CancelTxId
	sub.Active = false
	logger.Info("Subscription %d on grant %d cancelled by profile %d", sub.Id, grant.Id, actor.Id)

	s.notifier.Notify(ctx, model.NotificationSupportCancellation, grant, sub)

	return grant, sub, nil
}
