package logic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// DefaultGrantListLimit 列表页默认每页数量
	DefaultGrantListLimit = 24
	// DefaultNetwork 默认网络
	DefaultNetwork = "mainnet"
	// GrantStateActive 只列出有效的 grant
	GrantStateActive = "active"

	defaultGrantSort = "-created_at"
)

// grantSortColumns 允许排序的字段
var grantSortColumns = map[string]string{
	"created_at":  "created_at",
	"created_on":  "created_at",
	"updated_at":  "updated_at",
	"title":       "title",
	"amount_goal": "amount_goal",
}

// GrantLogic grant 业务逻辑
type GrantLogic struct {
	db       *gorm.DB
	notifier Notifier
	assets   AssetStore
}

// NewGrantLogic 创建 grant 业务逻辑
func NewGrantLogic(db *gorm.DB, notifier Notifier, assets AssetStore) *GrantLogic {
	return &GrantLogic{db: db, notifier: notifier, assets: assets}
}

// GrantFilter 列表过滤条件
type GrantFilter struct {
	Network string
	State   string
	Keyword string
	Sort    string
	Page    Page
}

// GrantListItem 列表项，附带有效订阅数
type GrantListItem struct {
	Grant               model.GrantModel
	ActiveSubscriptions int64
}

// ListGrants 按网络、状态、关键字过滤并分页
func (p *GrantLogic) ListGrants(ctx context.Context, filter GrantFilter) ([]GrantListItem, int64, error) {
	if filter.Network == "" {
		filter.Network = DefaultNetwork
	}
	if filter.State == "" {
		filter.State = GrantStateActive
	}
	page := filter.Page.Normalize(DefaultGrantListLimit)

	query := p.db.WithContext(ctx).Model(&model.GrantModel{}).Where("network = ?", filter.Network)
	if filter.State == GrantStateActive {
		query = query.Where("active = ?", true)
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取grant总数失败: %w", err)
	}

	var grants []model.GrantModel
	if err := query.Order(orderClause(filter.Sort, grantSortColumns, defaultGrantSort)).
		Offset(page.offset()).
		Limit(page.Limit).
		Find(&grants).Error; err != nil {
		return nil, 0, fmt.Errorf("获取grant列表失败: %w", err)
	}

	counts, err := p.activeSubscriptionCounts(ctx, grants)
	if err != nil {
		return nil, 0, err
	}

	items := make([]GrantListItem, len(grants))
	for i, grant := range grants {
		items[i] = GrantListItem{Grant: grant, ActiveSubscriptions: counts[grant.Id]}
	}
	return items, total, nil
}

func (p *GrantLogic) activeSubscriptionCounts(ctx context.Context, grants []model.GrantModel) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(grants))
	if len(grants) == 0 {
		return counts, nil
	}

	ids := make([]int64, len(grants))
	for i, grant := range grants {
		ids[i] = grant.Id
	}

	var rows []struct {
		GrantId int64
		Total   int64
	}
	if err := p.db.WithContext(ctx).Model(&model.SubscriptionModel{}).
		Select("grant_id, COUNT(*) AS total").
		Where("grant_id IN ? AND active = ?", ids, true).
		Group("grant_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("获取订阅统计失败: %w", err)
	}
	for _, row := range rows {
		counts[row.GrantId] = row.Total
	}
	return counts, nil
}

// LogoUpload 待上传的 logo
type LogoUpload struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// CreateGrantInput 创建 grant 的参数，缺省字段保持零值
type CreateGrantInput struct {
	Title                string
	Description          string
	ReferenceURL         string
	AdminAddress         string
	ContractOwnerAddress string
	TokenAddress         string
	TokenSymbol          string
	AmountGoal           decimal.Decimal
	ContractVersion      string
	DeployTxId           string
	ContractAddress      string
	Network              string
	Metadata             []byte
	TeamMembers          []int64
	Logo                 *LogoUpload
}

// CreateGrant 创建 grant，创建者成为管理员并加入团队
func (p *GrantLogic) CreateGrant(ctx context.Context, actor *model.ProfileModel, in CreateGrantInput) (*model.GrantModel, error) {
	if !actor.MayAddGrant() {
		return nil, fmt.Errorf("%w: add grant", ErrPermissionDenied)
	}

	if in.Network == "" {
		in.Network = DefaultNetwork
	}
	metadata := datatypes.JSON(in.Metadata)
	if len(metadata) == 0 {
		metadata = datatypes.JSON("{}")
	}

	grant := &model.GrantModel{
		Slug:                 model.Slugify(in.Title),
		Title:                in.Title,
		Description:          in.Description,
		ReferenceURL:         in.ReferenceURL,
		AdminAddress:         in.AdminAddress,
		AdminProfileId:       actor.Id,
		ContractAddress:      in.ContractAddress,
		ContractOwnerAddress: in.ContractOwnerAddress,
		ContractVersion:      in.ContractVersion,
		DeployTxId:           in.DeployTxId,
		TokenAddress:         in.TokenAddress,
		TokenSymbol:          in.TokenSymbol,
		Network:              in.Network,
		AmountGoal:           in.AmountGoal,
		Metadata:             metadata,
		Active:               true,
	}

	if in.Logo != nil && in.Logo.Reader != nil && p.assets != nil {
		url, err := p.assets.Upload(ctx, in.Logo.Name, in.Logo.ContentType, in.Logo.Reader)
		if err != nil {
			return nil, fmt.Errorf("上传logo失败: %w", err)
		}
		grant.LogoURL = url
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(grant).Error; err != nil {
			return fmt.Errorf("创建grant失败: %w", err)
		}
		return replaceTeam(tx, grant, in.TeamMembers)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Grant %d created by profile %d", grant.Id, actor.Id)
	p.notifier.Notify(ctx, model.NotificationNewGrant, grant, nil)

	return grant, nil
}

// GetGrant 按 id 与 slug 获取 grant
func (p *GrantLogic) GetGrant(ctx context.Context, id int64, slug string) (*model.GrantModel, error) {
	var grant model.GrantModel
	if err := p.db.WithContext(ctx).
		Preload("AdminProfile").
		Preload("TeamMembers").
		Where("id = ? AND slug = ?", id, slug).
		First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: grant %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("获取grant失败: %w", err)
	}
	return &grant, nil
}

// GrantDetail 详情页数据
type GrantDetail struct {
	Grant            *model.GrantModel
	Milestones       []model.MilestoneModel
	Updates          []model.UpdateModel
	Subscriptions    []model.SubscriptionModel
	UserSubscription *model.SubscriptionModel
	IsAdmin          bool
	GrantIsInactive  bool
}

// GetGrantDetail 获取详情：里程碑按截止日期升序，动态按时间倒序，只含有效订阅
func (p *GrantLogic) GetGrantDetail(ctx context.Context, id int64, slug string, viewer *model.ProfileModel) (*GrantDetail, error) {
	grant, err := p.GetGrant(ctx, id, slug)
	if err != nil {
		return nil, err
	}

	db := p.db.WithContext(ctx)
	detail := &GrantDetail{
		Grant:           grant,
		IsAdmin:         grant.IsAdmin(viewer),
		GrantIsInactive: !grant.Active,
	}

	if err := db.Where("grant_id = ?", grant.Id).Order("due_date ASC").Find(&detail.Milestones).Error; err != nil {
		return nil, fmt.Errorf("获取里程碑失败: %w", err)
	}
	if err := db.Where("grant_id = ?", grant.Id).Order("created_at DESC, id DESC").Find(&detail.Updates).Error; err != nil {
		return nil, fmt.Errorf("获取动态失败: %w", err)
	}
	if err := db.Preload("ContributorProfile").
		Where("grant_id = ? AND active = ?", grant.Id, true).
		Order("created_at ASC").
		Find(&detail.Subscriptions).Error; err != nil {
		return nil, fmt.Errorf("获取订阅失败: %w", err)
	}

	if viewer != nil {
		for i := range detail.Subscriptions {
			if detail.Subscriptions[i].ContributorProfileId == viewer.Id {
				detail.UserSubscription = &detail.Subscriptions[i]
				break
			}
		}
	}

	return detail, nil
}

// GrantAction grant 的修改操作，每种操作一个类型
type GrantAction interface {
	actionName() string
}

// CancelGrant 取消 grant，终态
type CancelGrant struct {
	CancelTxId string
}

// PostUpdate 发布动态
type PostUpdate struct {
	Title       string
	Description string
}

// SetContractOwner 设置合约所有者地址
type SetContractOwner struct {
	Address string
}

// EditGrant 修改基本信息、管理员和团队
type EditGrant struct {
	Title        string
	ReferenceURL string
	AdminHandle  string
	Description  string
	TeamMembers  []int64
}

func (CancelGrant) actionName() string      { return "cancel" }
func (PostUpdate) actionName() string       { return "post_update" }
func (SetContractOwner) actionName() string { return "set_contract_owner" }
func (EditGrant) actionName() string        { return "edit" }

// ApplyAction 执行修改操作，仅管理员或 staff 可用
func (p *GrantLogic) ApplyAction(ctx context.Context, id int64, slug string, actor *model.ProfileModel, action GrantAction) (*model.GrantModel, error) {
	grant, err := p.GetGrant(ctx, id, slug)
	if err != nil {
		return nil, err
	}

	if !grant.IsAdmin(actor) && (actor == nil || !actor.IsStaff) {
		return grant, fmt.Errorf("%w: %s grant %d", ErrPermissionDenied, action.actionName(), grant.Id)
	}

	switch a := action.(type) {
	case CancelGrant:
		err = p.cancelGrant(ctx, grant, a)
	case PostUpdate:
		err = p.postUpdate(ctx, grant, a)
	case SetContractOwner:
		err = p.setContractOwner(ctx, grant, a)
	case EditGrant:
		err = p.editGrant(ctx, grant, a)
	default:
		err = fmt.Errorf("%w: unknown grant action", ErrInvalidInput)
	}
	if err != nil {
		return grant, err
	}

	logger.Info("Grant %d action %s applied by profile %d", grant.Id, action.actionName(), actor.Id)
	return grant, nil
}

// cancelGrant 已取消的 grant 不再修改也不再发送通知
func (p *GrantLogic) cancelGrant(ctx context.Context, grant *model.GrantModel, a CancelGrant) error {
	var subscriptions []model.SubscriptionModel
	cancelled := false

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.GrantModel{}).
			Where("id = ? AND active = ?", grant.Id, true).
			Updates(map[string]interface{}{
				"cancel_tx_id": a.CancelTxId,
				"active":       false,
			})
		if res.Error != nil {
			return fmt.Errorf("取消grant失败: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		cancelled = true

		return tx.Preload("ContributorProfile").
			Where("grant_id = ? AND active = ?", grant.Id, true).
			Find(&subscriptions).Error
	})
	if err != nil {
		return err
	}

	if !cancelled {
		logger.Info("Grant %d already cancelled, nothing to do", grant.Id)
		return nil
	}

	grant.Active = false
	grant.CancelTxId = a.CancelTxId

	p.notifier.Notify(ctx, model.NotificationGrantCancellation, grant, nil)
	for i := range subscriptions {
		p.notifier.Notify(ctx, model.NotificationSubscriptionTerminated, grant, &subscriptions[i])
	}
	return nil
}

func (p *GrantLogic) postUpdate(ctx context.Context, grant *model.GrantModel, a PostUpdate) error {
	update := &model.UpdateModel{
		GrantId:     grant.Id,
		Title:       a.Title,
		Description: a.Description,
	}
	if err := p.db.WithContext(ctx).Create(update).Error; err != nil {
		return fmt.Errorf("发布动态失败: %w", err)
	}
	return nil
}

func (p *GrantLogic) setContractOwner(ctx context.Context, grant *model.GrantModel, a SetContractOwner) error {
	if err := p.db.WithContext(ctx).Model(&model.GrantModel{Id: grant.Id}).Update("contract_owner_address", a.Address).Error; err != nil {
		return fmt.Errorf("更新合约所有者失败: %w", err)
	}
	grant.ContractOwnerAddress = a.Address
	return nil
}

// editGrant 管理员按 handle 解析，团队成员为提交列表加上新管理员
func (p *GrantLogic) editGrant(ctx context.Context, grant *model.GrantModel, a EditGrant) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin model.ProfileModel
		if err := tx.Where("handle = ?", a.AdminHandle).First(&admin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: profile %q", ErrNotFound, a.AdminHandle)
			}
			return fmt.Errorf("获取管理员失败: %w", err)
		}

		if err := tx.Model(&model.GrantModel{Id: grant.Id}).Updates(map[string]interface{}{
			"title":            a.Title,
			"reference_url":    a.ReferenceURL,
			"admin_profile_id": admin.Id,
			"description":      a.Description,
		}).Error; err != nil {
			return fmt.Errorf("更新grant失败: %w", err)
		}

		grant.Title = a.Title
		grant.ReferenceURL = a.ReferenceURL
		grant.AdminProfileId = admin.Id
		grant.AdminProfile = &admin
		grant.Description = a.Description

		return replaceTeam(tx, grant, a.TeamMembers)
	})
}

// replaceTeam 团队成员 = 提交的 id ∪ 管理员，忽略非正数和不存在的 id
func replaceTeam(tx *gorm.DB, grant *model.GrantModel, memberIds []int64) error {
	ids := teamMemberIds(memberIds, grant.AdminProfileId)

	var members []model.ProfileModel
	if err := tx.Where("id IN ?", ids).Order("id ASC").Find(&members).Error; err != nil {
		return fmt.Errorf("获取团队成员失败: %w", err)
	}

	if err := tx.Model(&model.GrantModel{Id: grant.Id}).Association("TeamMembers").Replace(members); err != nil {
		return fmt.Errorf("更新团队成员失败: %w", err)
	}
	grant.TeamMembers = members
	return nil
}

func teamMemberIds(memberIds []int64, adminId int64) []int64 {
	seen := make(map[int64]struct{}, len(memberIds)+1)
	ids := make([]int64, 0, len(memberIds)+1)

	add := func(id int64) {
		if id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range memberIds {
		add(id)
	}
	add(adminId)
	return ids
}

// orderClause 将 "-field" 形式的排序参数转换为 SQL，未知字段使用默认排序
func orderClause(sort string, columns map[string]string, fallback string) string {
	desc := strings.HasPrefix(sort, "-")
	column, ok := columns[strings.TrimPrefix(sort, "-")]
	if !ok {
		if sort == fallback {
			return "id DESC"
		}
		return orderClause(fallback, columns, fallback)
	}
	if desc {
		return column + " DESC, id DESC"
	}
	return column + " ASC, id ASC"
}
