package handler

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/blues/grants/internal/asset"
	"github.com/blues/grants/internal/auth"
	"github.com/blues/grants/internal/gas"
	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/logic"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// FeeAdvisor 提供各确认时间的 gas 价格建议
type FeeAdvisor interface {
	Recommendations(ctx context.Context) ([]gas.Recommendation, error)
}

type GrantHandler struct {
	grantLogic *logic.GrantLogic
	fees       FeeAdvisor
}

func NewGrantHandler(grantLogic *logic.GrantLogic, fees FeeAdvisor) *GrantHandler {
	return &GrantHandler{
		grantLogic: grantLogic,
		fees:       fees,
	}
}

// gasPrices 获取 gas 价格建议，失败时记录日志并省略
func gasPrices(c *gin.Context, fees FeeAdvisor) []gas.Recommendation {
	if fees == nil {
		return nil
	}
	prices, err := fees.Recommendations(c.Request.Context())
	if err != nil {
		logger.Warn("Gas recommendations unavailable: %v", err)
		return nil
	}
	return prices
}

// ListGrants 获取 grant 列表
func (h *GrantHandler) ListGrants(c *gin.Context) {
	var req ListGrantsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	page := logic.Page{Page: req.Page, Limit: req.Limit}.Normalize(logic.DefaultGrantListLimit)

	items, total, err := h.grantLogic.ListGrants(c.Request.Context(), logic.GrantFilter{
		Network: req.Network,
		State:   req.State,
		Keyword: req.Keyword,
		Sort:    req.SortOption,
		Page:    page,
	})
	if err != nil {
		handleError(c, err, grantsPath, "")
		return
	}

	grants := make([]GrantListItemResponse, 0, len(items))
	for _, item := range items {
		grants = append(grants, GrantListItemResponse{
			GrantModel:          item.Grant,
			ActiveSubscriptions: item.ActiveSubscriptions,
		})
	}

	SuccessResponse(c, http.StatusOK, "", GrantListResponse{
		Title:      "Grants Explorer",
		Grants:     grants,
		Pagination: newPagination(page, total),
	})
}

// CreateGrant 创建 grant
func (h *GrantHandler) CreateGrant(c *gin.Context) {
	var req CreateGrantRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	amountGoal := decimal.NewFromInt(1)
	if req.AmountGoal != "" {
		v, err := decimal.NewFromString(req.AmountGoal)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "无效的amount_goal")
			return
		}
		amountGoal = v
	}

	var metadata []byte
	if strings.TrimSpace(req.Receipt) != "" {
		if !json.Valid([]byte(req.Receipt)) {
			ErrorResponse(c, http.StatusBadRequest, "无效的receipt")
			return
		}
		metadata = []byte(req.Receipt)
	}

	in := logic.CreateGrantInput{
		Title:                req.Title,
		Description:          req.Description,
		ReferenceURL:         req.ReferenceURL,
		AdminAddress:         req.AdminAddress,
		ContractOwnerAddress: req.ContractOwnerAddress,
		TokenAddress:         req.Denomination,
		TokenSymbol:          req.TokenSymbol,
		AmountGoal:           amountGoal,
		ContractVersion:      req.ContractVersion,
		DeployTxId:           req.TransactionHash,
		ContractAddress:      req.ContractAddress,
		Network:              req.Network,
		Metadata:             metadata,
		TeamMembers:          req.TeamMembers,
	}

	if file, err := c.FormFile("input_image"); err == nil {
		logo, err := file.Open()
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "无法读取logo")
			return
		}
		defer logo.Close()
		in.Logo = &logic.LogoUpload{
			Name:        file.Filename,
			ContentType: logoContentType(file),
			Reader:      logo,
		}
	}

	grant, err := h.grantLogic.CreateGrant(c.Request.Context(), auth.CurrentProfile(c), in)
	if err != nil {
		handleError(c, err, grantsPath, "You do not have permission to add a grant.")
		return
	}

	Redirect(c, grantURL(grant), "")
}

// GetGrant 获取 grant 详情
func (h *GrantHandler) GetGrant(c *gin.Context) {
	id, slug, ok := grantParams(c)
	if !ok {
		return
	}

	detail, err := h.grantLogic.GetGrantDetail(c.Request.Context(), id, slug, auth.CurrentProfile(c))
	if err != nil {
		handleError(c, err, grantPathURL(c), "")
		return
	}

	SuccessResponse(c, http.StatusOK, "", GrantDetailResponse{
		Grant:            detail.Grant,
		Milestones:       detail.Milestones,
		Updates:          detail.Updates,
		Subscriptions:    detail.Subscriptions,
		UserSubscription: detail.UserSubscription,
		IsAdmin:          detail.IsAdmin,
		GrantIsInactive:  detail.GrantIsInactive,
		GasPrices:        gasPrices(c, h.fees),
	})
}

// UpdateGrant 执行详情页上的修改操作
func (h *GrantHandler) UpdateGrant(c *gin.Context) {
	id, slug, ok := grantParams(c)
	if !ok {
		return
	}

	var req GrantActionRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var action logic.GrantAction
	switch req.Action {
	case "cancel":
		action = logic.CancelGrant{CancelTxId: req.CancelTxId}
	case "post_update":
		action = logic.PostUpdate{Title: req.Title, Description: req.Description}
	case "set_contract_owner":
		action = logic.SetContractOwner{Address: req.ContractOwnerAddress}
	case "edit":
		action = logic.EditGrant{
			Title:        req.Title,
			ReferenceURL: req.ReferenceURL,
			AdminHandle:  req.AdminProfile,
			Description:  req.Description,
			TeamMembers:  req.GrantMembers,
		}
	default:
		ErrorResponse(c, http.StatusBadRequest, "未知的操作: "+req.Action)
		return
	}

	grant, err := h.grantLogic.ApplyAction(c.Request.Context(), id, slug, auth.CurrentProfile(c), action)
	if err != nil {
		handleError(c, err, grantPathURL(c), "You do not have permission to change this grant.")
		return
	}

	Redirect(c, grantURL(grant), "")
}

// Quickstart 新手指引
func (h *GrantHandler) Quickstart(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "", gin.H{
		"active": "grants_quickstart",
		"title":  "Quickstart",
	})
}

func logoContentType(file *multipart.FileHeader) string {
	if ct := file.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return asset.ContentTypeForName(file.Filename)
}
