package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/logic"
	"github.com/blues/grants/internal/model"
	"github.com/gin-gonic/gin"
)

const grantsPath = "/api/v1/grants"

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// Redirect 修改成功后返回 303，Location 指向下一个页面
func Redirect(c *gin.Context, location, message string) {
	c.Header("Location", location)
	c.JSON(http.StatusSeeOther, Response{
		Success: true,
		Message: message,
		Data:    gin.H{"redirect": location},
	})
}

// denied 无权操作时重定向并附带提示
func denied(c *gin.Context, location, message string) {
	c.Header("Location", location)
	c.JSON(http.StatusSeeOther, Response{
		Success: false,
		Message: message,
		Data:    gin.H{"redirect": location},
	})
}

// stateErrorResponse 状态不允许时返回错误页数据
func stateErrorResponse(c *gin.Context, se *logic.StateError) {
	c.JSON(http.StatusConflict, Response{
		Success: false,
		Message: se.Text,
		Data: gin.H{
			"title": se.Title,
			"text":  se.Text,
			"grant": se.Grant,
		},
	})
}

// handleError 将 logic 层错误映射为 HTTP 响应，deniedTo 为无权操作时的跳转地址
func handleError(c *gin.Context, err error, deniedTo, deniedMessage string) {
	if se, ok := logic.IsStateError(err); ok {
		stateErrorResponse(c, se)
		return
	}

	switch {
	case errors.Is(err, logic.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, logic.ErrPermissionDenied):
		denied(c, deniedTo, deniedMessage)
	case errors.Is(err, logic.ErrInvalidInput):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
}

func grantURL(grant *model.GrantModel) string {
	return fmt.Sprintf("%s/%d/%s", grantsPath, grant.Id, grant.Slug)
}

// grantPathURL 根据路径参数拼接详情地址，grant 尚未加载时使用
func grantPathURL(c *gin.Context) string {
	return fmt.Sprintf("%s/%s/%s", grantsPath, c.Param("id"), c.Param("slug"))
}

// grantParams 解析路径中的 id 与 slug
func grantParams(c *gin.Context) (int64, string, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "无效的grant ID")
		return 0, "", false
	}
	return id, c.Param("slug"), true
}
