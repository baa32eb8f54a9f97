package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/model"
	"gorm.io/gorm"
)

// 里程碑操作，由请求体中的 method 字段区分
const (
	MilestoneCreate = "POST"
	MilestoneUpdate = "PUT"
	MilestoneDelete = "DELETE"
)

// MilestoneLogic 里程碑业务逻辑
type MilestoneLogic struct {
	db     *gorm.DB
	grants *GrantLogic
}

// NewMilestoneLogic 创建里程碑业务逻辑
func NewMilestoneLogic(db *gorm.DB, grants *GrantLogic) *MilestoneLogic {
	return &MilestoneLogic{db: db, grants: grants}
}

// MilestoneInput 里程碑操作参数
type MilestoneInput struct {
	Method         string
	MilestoneId    int64
	Title          string
	Description    string
	DueDate        *time.Time
	CompletionDate *time.Time
}

// ListMilestones 按截止日期升序返回 grant 的里程碑
func (m *MilestoneLogic) ListMilestones(ctx context.Context, id int64, slug string, viewer *model.ProfileModel) (*model.GrantModel, []model.MilestoneModel, bool, error) {
	grant, err := m.grants.GetGrant(ctx, id, slug)
	if err != nil {
		return nil, nil, false, err
	}

	var milestones []model.MilestoneModel
	if err := m.db.WithContext(ctx).
		Where("grant_id = ?", grant.Id).
		Order("due_date ASC, id ASC").
		Find(&milestones).Error; err != nil {
		return nil, nil, false, fmt.Errorf("获取里程碑失败: %w", err)
	}

	return grant, milestones, grant.IsAdmin(viewer), nil
}

// ApplyMilestone 创建、完成或删除里程碑，只有管理员可以操作
func (m *MilestoneLogic) ApplyMilestone(ctx context.Context, id int64, slug string, actor *model.ProfileModel, in MilestoneInput) (*model.GrantModel, error) {
	grant, err := m.grants.GetGrant(ctx, id, slug)
	if err != nil {
		return nil, err
	}

	if !grant.IsAdmin(actor) {
		return grant, fmt.Errorf("%w: manage milestones of grant %d", ErrPermissionDenied, grant.Id)
	}

	switch strings.ToUpper(in.Method) {
	case MilestoneCreate:
		err = m.createMilestone(ctx, grant, in)
	case MilestoneUpdate:
		err = m.completeMilestone(ctx, grant, in)
	case MilestoneDelete:
		err = m.deleteMilestone(ctx, grant, in)
	default:
		err = fmt.Errorf("%w: unknown milestone method %q", ErrInvalidInput, in.Method)
	}
	if err != nil {
		return grant, err
	}

	logger.Info("Milestone %s on grant %d by profile %d", strings.ToUpper(in.Method), grant.Id, actor.Id)
	return grant, nil
}

func (m *MilestoneLogic) createMilestone(ctx context.Context, grant *model.GrantModel, in MilestoneInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.DueDate == nil {
		return fmt.Errorf("%w: due_date is required", ErrInvalidInput)
	}

	milestone := &model.MilestoneModel{
		GrantId:     grant.Id,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     *in.DueDate,
	}
	if err := m.db.WithContext(ctx).Create(milestone).Error; err != nil {
		return fmt.Errorf("创建里程碑失败: %w", err)
	}
	return nil
}

func (m *MilestoneLogic) completeMilestone(ctx context.Context, grant *model.GrantModel, in MilestoneInput) error {
	if in.CompletionDate == nil {
		return fmt.Errorf("%w: completion_date is required", ErrInvalidInput)
	}

	milestone, err := m.findMilestone(ctx, grant, in.MilestoneId)
	if err != nil {
		return err
	}

	if err := m.db.WithContext(ctx).Model(milestone).Update("completion_date", in.CompletionDate).Error; err != nil {
		return fmt.Errorf("更新里程碑失败: %w", err)
	}
	return nil
}

func (m *MilestoneLogic) deleteMilestone(ctx context.Context, grant *model.GrantModel, in MilestoneInput) error {
	milestone, err := m.findMilestone(ctx, grant, in.MilestoneId)
	if err != nil {
		return err
	}

	if err := m.db.WithContext(ctx).Delete(milestone).Error; err != nil {
		return fmt.Errorf("删除里程碑失败: %w", err)
	}
	return nil
}

// findMilestone 只查找属于该 grant 的里程碑
func (m *MilestoneLogic) findMilestone(ctx context.Context, grant *model.GrantModel, milestoneId int64) (*model.MilestoneModel, error) {
	var milestone model.MilestoneModel
	if err := m.db.WithContext(ctx).
		Where("id = ? AND grant_id = ?", milestoneId, grant.Id).
		First(&milestone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: milestone %d", ErrNotFound, milestoneId)
		}
		return nil, fmt.Errorf("获取里程碑失败: %w", err)
	}
	return &milestone, nil
}
