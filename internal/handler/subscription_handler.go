package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/grants/internal/auth"
	"github.com/blues/grants/internal/logic"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const subscriptionCancelledMessage = "Your subscription has been canceled. We hope you continue to support other open source projects!"

type SubscriptionHandler struct {
	subscriptionLogic *logic.SubscriptionLogic
	fees              FeeAdvisor
}

func NewSubscriptionHandler(subscriptionLogic *logic.SubscriptionLogic, fees FeeAdvisor) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionLogic: subscriptionLogic,
		fees:              fees,
	}
}

// GetFund 资助页，先检查能否资助
func (h *SubscriptionHandler) GetFund(c *gin.Context) {
	id, slug, ok := grantParams(c)
	if !ok {
		return
	}

	grant, err := h.subscriptionLogic.CheckFundable(c.Request.Context(), id, slug, auth.CurrentProfile(c))
	if err != nil {
		handleError(c, err, grantPathURL(c), "")
		return
	}

	SuccessResponse(c, http.StatusOK, "", FundResponse{
		Title:           "Fund Grant",
		Grant:           grant,
		GrantHasNoToken: grant.HasNoToken(),
		GasPrices:       gasPrices(c, h.fees),
	})
}

// Fund 创建订阅
func (h *SubscriptionHandler) Fund(c *gin.Context) {
	id, slug, ok := grantParams(c)
	if !ok {
		return
	}

	var req FundRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmount(req.AmountPerPeriod)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的amount_per_period")
		return
	}
	gasPrice, err := parseAmount(req.GasPrice)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的gas_price")
		return
	}

	grant, _, err := h.subscriptionLogic.Fund(c.Request.Context(), id, slug, auth.CurrentProfile(c), logic.FundInput{
		SubscriptionHash:     req.SubscriptionHash,
		ContributorSignature: req.Signature,
		ContributorAddress:   req.ContributorAddress,
		AmountPerPeriod:      amount,
		RealPeriodSeconds:    req.RealPeriodSeconds,
		Frequency:            req.Frequency,
		FrequencyUnit:        req.FrequencyUnit,
		TokenAddress:         req.Denomination,
		TokenSymbol:          req.TokenSymbol,
		GasPrice:             gasPrice,
		Network:              req.Network,
		NewApproveTxId:       req.NewApproveTxId,
	})
	if err != nil {
		handleError(c, err, grantPathURL(c), "")
		return
	}

	Redirect(c, grantURL(grant), "")
}

// GetCancel 取消订阅页
func (h *SubscriptionHandler) GetCancel(c *gin.Context) {
	id, slug, ok := grantParams(c)
	if !ok {
		return
	}
	subId, ok := subscriptionParam(c)
	if !ok {
		return
	}

	grant, sub, err := h.subscriptionLogic.GetCancellable(c.Request.Context(), id, slug, subId)
	if err != nil {
		handleError(c, err, grantPathURL(c), "")
		return
	}

	SuccessResponse(c, http.StatusOK, "", CancelSubscriptionResponse{
		Title:        "Cancel Grant Subscription",
		Grant:        grant,
		Subscription: sub,
		GasPrices:    gasPrices(c, h.fees),
	})
}

// Cancel 取消订阅
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, slug, ok := grantParams(c)
	if !ok {
		return
	}
	subId, ok := subscriptionParam(c)
	if !ok {
		return
	}

	var req CancelSubscriptionRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	grant, _, err := h.subscriptionLogic.CancelSubscription(c.Request.Context(), id, slug, subId, auth.CurrentProfile(c), logic.CancelInput{
		EndApproveTxId: req.EndApproveTxId,
		CancelTxId:     req.CancelTxId,
	})
	if err != nil {
		handleError(c, err, grantPathURL(c), "You do not have permission to cancel this subscription.")
		return
	}

	Redirect(c, grantURL(grant), subscriptionCancelledMessage)
}

func subscriptionParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("subscription_id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "无效的订阅ID")
		return 0, false
	}
	return id, true
}

func parseAmount(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}
