package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/model"
	"github.com/gin-gonic/gin"
)

const profileKey = "grants.profile"

// ProfileFinder 按 id 查找 profile
type ProfileFinder interface {
	GetProfile(ctx context.Context, id int64) (*model.ProfileModel, error)
}

// ResolveProfile 解析 Bearer 令牌并把 profile 放入上下文；没有令牌时按匿名处理
func ResolveProfile(tokens *TokenService, profiles ProfileFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		profileId, err := tokens.ParseToken(tokenString)
		if err != nil {
			logger.Debug("Rejected token: %v", err)
			abortUnauthorized(c, "invalid token")
			return
		}

		profile, err := profiles.GetProfile(c.Request.Context(), profileId)
		if err != nil {
			logger.Warn("Token references unknown profile %d: %v", profileId, err)
			abortUnauthorized(c, "unknown profile")
			return
		}

		c.Set(profileKey, profile)
		c.Next()
	}
}

// RequireProfile 需要登录的路由，匿名请求返回 401
func RequireProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentProfile(c) == nil {
			abortUnauthorized(c, "login required")
			return
		}
		c.Next()
	}
}

// CurrentProfile 当前请求的 profile，匿名时为 nil
func CurrentProfile(c *gin.Context) *model.ProfileModel {
	value, ok := c.Get(profileKey)
	if !ok {
		return nil
	}
	profile, _ := value.(*model.ProfileModel)
	return profile
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": msg,
	})
}
