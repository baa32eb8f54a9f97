package logic

import (
	"context"
	"errors"
	"fmt"

	"github.com/blues/grants/internal/model"
	"gorm.io/gorm"
)

// DefaultProfileGrantLimit 个人页默认每页数量
const DefaultProfileGrantLimit = 25

// ProfileLogic 个人页业务逻辑
type ProfileLogic struct {
	db *gorm.DB
}

// NewProfileLogic 创建个人页业务逻辑
func NewProfileLogic(db *gorm.DB) *ProfileLogic {
	return &ProfileLogic{db: db}
}

// GetProfile 按 id 获取用户档案
func (p *ProfileLogic) GetProfile(ctx context.Context, id int64) (*model.ProfileModel, error) {
	var profile model.ProfileModel
	if err := p.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: profile %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("获取用户失败: %w", err)
	}
	return &profile, nil
}

// HistoryEntry 一次资助记录及其订阅、grant 和资助者
type HistoryEntry struct {
	Contribution model.ContributionModel
	Subscription *model.SubscriptionModel
	Grant        *model.GrantModel
	Contributor  *model.ProfileModel
}

// ProfileHistory 个人页数据
type ProfileHistory struct {
	Grants     []model.GrantModel
	Total      int64
	SubGrants  []model.GrantModel
	SubHistory []HistoryEntry
	History    []HistoryEntry
}

// History 返回管理或参与的 grant、订阅过的 grant，以及发出和收到的资助记录
func (p *ProfileLogic) History(ctx context.Context, profile *model.ProfileModel, sort string, page Page) (*ProfileHistory, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: profile history", ErrPermissionDenied)
	}
	page = page.Normalize(DefaultProfileGrantLimit)
	db := p.db.WithContext(ctx)
	result := &ProfileHistory{}

	memberOf := db.Table("grant_team_members").Select("grant_id").Where("profile_id = ?", profile.Id)
	owned := db.Model(&model.GrantModel{}).Where("admin_profile_id = ? OR id IN (?)", profile.Id, memberOf)

	if err := owned.Count(&result.Total).Error; err != nil {
		return nil, fmt.Errorf("获取grant总数失败: %w", err)
	}
	if err := owned.Order(orderClause(sort, grantSortColumns, defaultGrantSort)).
		Offset(page.offset()).
		Limit(page.Limit).
		Find(&result.Grants).Error; err != nil {
		return nil, fmt.Errorf("获取grant列表失败: %w", err)
	}

	subscribed := db.Model(&model.SubscriptionModel{}).Select("grant_id").Where("contributor_profile_id = ?", profile.Id)
	if err := db.Where("id IN (?)", subscribed).Order("created_at DESC, id DESC").Find(&result.SubGrants).Error; err != nil {
		return nil, fmt.Errorf("获取订阅grant失败: %w", err)
	}

	var sent []model.ContributionModel
	if err := contributionQuery(db).
		Where("subscription.contributor_profile_id = ?", profile.Id).
		Find(&sent).Error; err != nil {
		return nil, fmt.Errorf("获取资助记录失败: %w", err)
	}
	result.SubHistory = historyEntries(sent)

	var ownedIds []int64
	if err := db.Model(&model.GrantModel{}).
		Where("admin_profile_id = ? OR id IN (?)", profile.Id, memberOf).
		Pluck("id", &ownedIds).Error; err != nil {
		return nil, fmt.Errorf("获取grant失败: %w", err)
	}
	if len(ownedIds) > 0 {
		var received []model.ContributionModel
		if err := contributionQuery(db).
			Where("subscription.grant_id IN ?", ownedIds).
			Find(&received).Error; err != nil {
			return nil, fmt.Errorf("获取资助记录失败: %w", err)
		}
		result.History = historyEntries(received)
	}

	return result, nil
}

func contributionQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&model.ContributionModel{}).
		Joins("JOIN subscription ON subscription.id = contribution.subscription_id").
		Preload("Subscription.Grant").
		Preload("Subscription.ContributorProfile").
		Order("contribution.created_at DESC, contribution.id DESC")
}

func historyEntries(contributions []model.ContributionModel) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(contributions))
	for _, c := range contributions {
		entry := HistoryEntry{Contribution: c, Subscription: c.Subscription}
		if c.Subscription != nil {
			entry.Grant = c.Subscription.Grant
			entry.Contributor = c.Subscription.ContributorProfile
		}
		entries = append(entries, entry)
	}
	return entries
}
