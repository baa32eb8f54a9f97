package router

import (
	"context"
	"net/http"
	"time"

	"github.com/blues/grants/internal/auth"
	"github.com/blues/grants/internal/handler"
	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthChecker 外部依赖的健康状态
type HealthChecker interface {
	GetHealthStatus(ctx context.Context) map[string]interface{}
}

// Deps 路由依赖，Fees、Assets 和 Chain 可以为 nil
type Deps struct {
	Notifier logic.Notifier
	Assets   logic.AssetStore
	Fees     handler.FeeAdvisor
	Tokens   *auth.TokenService
	Chain    HealthChecker
}

func Setup(db *gorm.DB, deps Deps) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(requestLogger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{
			"status":  "ok",
			"service": "grants-service",
		}
		if deps.Chain != nil {
			status["chain"] = deps.Chain.GetHealthStatus(c.Request.Context())
		}
		c.JSON(http.StatusOK, status)
	})

	grantLogic := logic.NewGrantLogic(db, deps.Notifier, deps.Assets)
	milestoneLogic := logic.NewMilestoneLogic(db, grantLogic)
	subscriptionLogic := logic.NewSubscriptionLogic(db, grantLogic, deps.Notifier)
	profileLogic := logic.NewProfileLogic(db)

	grantHandler := handler.NewGrantHandler(grantLogic, deps.Fees)
	milestoneHandler := handler.NewMilestoneHandler(milestoneLogic)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionLogic, deps.Fees)
	profileHandler := handler.NewProfileHandler(profileLogic)

	// API版本组
	v1 := r.Group("/api/v1")
	v1.Use(auth.ResolveProfile(deps.Tokens, profileLogic))
	{
		login := auth.RequireProfile()

		grants := v1.Group("/grants")
		{
			grants.GET("", grantHandler.ListGrants)
			grants.POST("", login, grantHandler.CreateGrant)
			grants.GET("/quickstart", grantHandler.Quickstart)
			grants.GET("/profile", login, profileHandler.GetProfile)

			grants.GET("/:id/:slug", grantHandler.GetGrant)
			grants.POST("/:id/:slug", login, grantHandler.UpdateGrant)

			grants.GET("/:id/:slug/milestones", login, milestoneHandler.GetMilestones)
			grants.POST("/:id/:slug/milestones", login, milestoneHandler.ManageMilestone)

			grants.GET("/:id/:slug/fund", login, subscriptionHandler.GetFund)
			grants.POST("/:id/:slug/fund", login, subscriptionHandler.Fund)

			grants.GET("/:id/:slug/subscriptions/:subscription_id/cancel", login, subscriptionHandler.GetCancel)
			grants.POST("/:id/:slug/subscriptions/:subscription_id/cancel", login, subscriptionHandler.Cancel)
		}
	}

	return r
}

// requestLogger 请求日志
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		c.Header("Access-Control-Expose-Headers", "Location")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
