package handler

import (
	"github.com/blues/grants/internal/gas"
	"github.com/blues/grants/internal/logic"
	"github.com/blues/grants/internal/model"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

func newPagination(page logic.Page, total int64) Pagination {
	p := Pagination{Page: page.Page, PageSize: page.Limit, Total: total}
	if page.Limit > 0 {
		p.TotalPage = (total + int64(page.Limit) - 1) / int64(page.Limit)
	}
	return p
}

// 请求模型

// ListGrantsRequest grant 列表查询参数
type ListGrantsRequest struct {
	Network    string `form:"network"`
	State      string `form:"state"`
	Keyword    string `form:"keyword"`
	SortOption string `form:"sort_option"`
	Limit      int    `form:"limit"`
	Page       int    `form:"page"`
}

// CreateGrantRequest 创建 grant 请求，支持表单和 JSON
type CreateGrantRequest struct {
	Title                string  `form:"input_title" json:"title"`
	Description          string  `form:"description" json:"description"`
	ReferenceURL         string  `form:"reference_url" json:"reference_url"`
	AdminAddress         string  `form:"admin_address" json:"admin_address"`
	ContractOwnerAddress string  `form:"contract_owner_address" json:"contract_owner_address"`
	Denomination         string  `form:"denomination" json:"denomination"`
	TokenSymbol          string  `form:"token_symbol" json:"token_symbol"`
	AmountGoal           string  `form:"amount_goal" json:"amount_goal"`
	ContractVersion      string  `form:"contract_version" json:"contract_version"`
	TransactionHash      string  `form:"transaction_hash" json:"transaction_hash"`
	ContractAddress      string  `form:"contract_address" json:"contract_address"`
	Network              string  `form:"network" json:"network"`
	Receipt              string  `form:"receipt" json:"receipt"`
	TeamMembers          []int64 `form:"team_members[]" json:"team_members"`
}

// GrantActionRequest 详情页的修改操作，action 区分操作类型
type GrantActionRequest struct {
	Action               string  `form:"action" json:"action"`
	CancelTxId           string  `form:"grant_cancel_tx_id" json:"grant_cancel_tx_id"`
	Title                string  `form:"title" json:"title"`
	Description          string  `form:"description" json:"description"`
	ContractOwnerAddress string  `form:"contract_owner_address" json:"contract_owner_address"`
	ReferenceURL         string  `form:"reference_url" json:"reference_url"`
	AdminProfile         string  `form:"admin_profile" json:"admin_profile"`
	GrantMembers         []int64 `form:"grant_members[]" json:"grant_members"`
}

// MilestoneRequest 里程碑操作请求，method 为 POST、PUT 或 DELETE
type MilestoneRequest struct {
	Method         string `form:"method" json:"method"`
	MilestoneId    int64  `form:"milestone_id" json:"milestone_id"`
	Title          string `form:"title" json:"title"`
	Description    string `form:"description" json:"description"`
	DueDate        string `form:"due_date" json:"due_date"`
	CompletionDate string `form:"completion_date" json:"completion_date"`
}

// FundRequest 资助请求
type FundRequest struct {
	SubscriptionHash   string `form:"subscription_hash" json:"subscription_hash"`
	Signature          string `form:"signature" json:"signature"`
	ContributorAddress string `form:"contributor_address" json:"contributor_address"`
	AmountPerPeriod    string `form:"amount_per_period" json:"amount_per_period"`
	RealPeriodSeconds  int64  `form:"real_period_seconds" json:"real_period_seconds"`
	Frequency          int64  `form:"frequency" json:"frequency"`
	FrequencyUnit      string `form:"frequency_unit" json:"frequency_unit"`
	Denomination       string `form:"denomination" json:"denomination"`
	TokenSymbol        string `form:"token_symbol" json:"token_symbol"`
	GasPrice           string `form:"gas_price" json:"gas_price"`
	NewApproveTxId     string `form:"sub_new_approve_tx_id" json:"sub_new_approve_tx_id"`
	Network            string `form:"network" json:"network"`
}

// CancelSubscriptionRequest 取消订阅请求
type CancelSubscriptionRequest struct {
	EndApproveTxId string `form:"sub_end_approve_tx_id" json:"sub_end_approve_tx_id"`
	CancelTxId     string `form:"sub_cancel_tx_id" json:"sub_cancel_tx_id"`
}

// ProfileRequest 个人页查询参数
type ProfileRequest struct {
	Limit int    `form:"limit"`
	Page  int    `form:"page"`
	Sort  string `form:"sort"`
}

// 响应模型

// GrantListItemResponse 列表项
type GrantListItemResponse struct {
	model.GrantModel
	ActiveSubscriptions int64 `json:"active_subscriptions"`
}

// GrantListResponse grant 列表
type GrantListResponse struct {
	Title      string                  `json:"title"`
	Grants     []GrantListItemResponse `json:"grants"`
	Pagination Pagination              `json:"pagination"`
}

// GrantDetailResponse grant 详情
type GrantDetailResponse struct {
	Grant            *model.GrantModel         `json:"grant"`
	Milestones       []model.MilestoneModel    `json:"milestones"`
	Updates          []model.UpdateModel       `json:"updates"`
	Subscriptions    []model.SubscriptionModel `json:"subscriptions"`
	UserSubscription *model.SubscriptionModel  `json:"user_subscription"`
	IsAdmin          bool                      `json:"is_admin"`
	GrantIsInactive  bool                      `json:"grant_is_inactive"`
	GasPrices        []gas.Recommendation      `json:"gas_prices,omitempty"`
}

// MilestonesResponse 里程碑列表
type MilestonesResponse struct {
	Title      string                 `json:"title"`
	Grant      *model.GrantModel      `json:"grant"`
	Milestones []model.MilestoneModel `json:"milestones"`
}

// FundResponse 资助页
type FundResponse struct {
	Title           string               `json:"title"`
	Grant           *model.GrantModel    `json:"grant"`
	GrantHasNoToken bool                 `json:"grant_has_no_token"`
	GasPrices       []gas.Recommendation `json:"gas_prices,omitempty"`
}

// CancelSubscriptionResponse 取消订阅页
type CancelSubscriptionResponse struct {
	Title        string                   `json:"title"`
	Grant        *model.GrantModel        `json:"grant"`
	Subscription *model.SubscriptionModel `json:"subscription"`
	GasPrices    []gas.Recommendation     `json:"gas_prices,omitempty"`
}

// HistoryEntryResponse 一次资助记录
type HistoryEntryResponse struct {
	Contribution model.ContributionModel  `json:"contribution"`
	Subscription *model.SubscriptionModel `json:"subscription"`
	Grant        *model.GrantModel        `json:"grant"`
	Contributor  *model.ProfileModel      `json:"contributor"`
}

// ProfileResponse 个人页
type ProfileResponse struct {
	Title      string                 `json:"title"`
	Grants     []model.GrantModel     `json:"grants"`
	Pagination Pagination             `json:"pagination"`
	SubGrants  []model.GrantModel     `json:"sub_grants"`
	SubHistory []HistoryEntryResponse `json:"sub_history"`
	History    []HistoryEntryResponse `json:"history"`
}

func newHistoryEntries(entries []logic.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			Contribution: e.Contribution,
			Subscription: e.Subscription,
			Grant:        e.Grant,
			Contributor:  e.Contributor,
		})
	}
	return out
}
