package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blues/grants/internal/auth"
	"github.com/blues/grants/internal/logic"
	"github.com/gin-gonic/gin"
)

// 里程碑日期支持的格式
var milestoneDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

type MilestoneHandler struct {
	milestoneLogic *logic.MilestoneLogic
}

func NewMilestoneHandler(milestoneLogic *logic.MilestoneLogic) *MilestoneHandler {
	return &MilestoneHandler{milestoneLogic: milestoneLogic}
}

// GetMilestones 里程碑列表，非管理员跳转到详情页
func (h *MilestoneHandler) GetMilestones(c *gin.Context) {
	id, slug, ok := grantParams(c)
	if !ok {
		return
	}

	grant, milestones, isAdmin, err := h.milestoneLogic.ListMilestones(c.Request.Context(), id, slug, auth.CurrentProfile(c))
	if err != nil {
		handleError(c, err, grantPathURL(c), "")
		return
	}
	if !isAdmin {
		Redirect(c, grantURL(grant), "")
		return
	}

	SuccessResponse(c, http.StatusOK, "", MilestonesResponse{
		Title:      "Grant Milestones",
		Grant:      grant,
		Milestones: milestones,
	})
}

// ManageMilestone 创建、完成或删除里程碑
func (h *MilestoneHandler) ManageMilestone(c *gin.Context) {
	id, slug, ok := grantParams(c)
	if !ok {
		return
	}

	var req MilestoneRequest
	if err := c.ShouldBind(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	dueDate, err := parseMilestoneDate(req.DueDate)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	completionDate, err := parseMilestoneDate(req.CompletionDate)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	grant, err := h.milestoneLogic.ApplyMilestone(c.Request.Context(), id, slug, auth.CurrentProfile(c), logic.MilestoneInput{
		Method:         req.Method,
		MilestoneId:    req.MilestoneId,
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        dueDate,
		CompletionDate: completionDate,
	})
	if err != nil {
		handleError(c, err, grantPathURL(c), "")
		return
	}

	Redirect(c, grantURL(grant)+"/milestones", "")
}

func parseMilestoneDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range milestoneDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("无效的日期: %s", value)
}
