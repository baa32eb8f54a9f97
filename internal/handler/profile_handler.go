package handler

import (
	"net/http"

	"github.com/blues/grants/internal/auth"
	"github.com/blues/grants/internal/logic"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileLogic *logic.ProfileLogic
}

func NewProfileHandler(profileLogic *logic.ProfileLogic) *ProfileHandler {
	return &ProfileHandler{profileLogic: profileLogic}
}

// GetProfile 当前用户管理、参与和资助的 grant 以及资助记录
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	page := logic.Page{Page: req.Page, Limit: req.Limit}.Normalize(logic.DefaultProfileGrantLimit)

	history, err := h.profileLogic.History(c.Request.Context(), auth.CurrentProfile(c), req.Sort, page)
	if err != nil {
		handleError(c, err, grantsPath, "")
		return
	}

	SuccessResponse(c, http.StatusOK, "", ProfileResponse{
		Title:      "My Grants",
		Grants:     history.Grants,
		Pagination: newPagination(page, history.Total),
		SubGrants:  history.SubGrants,
		SubHistory: newHistoryEntries(history.SubHistory),
		History:    newHistoryEntries(history.History),
	})
}
