package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blues/grants/internal/asset"
	"github.com/blues/grants/internal/auth"
	"github.com/blues/grants/internal/chain"
	"github.com/blues/grants/internal/config"
	"github.com/blues/grants/internal/database"
	"github.com/blues/grants/internal/gas"
	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/notify"
	"github.com/blues/grants/internal/router"
	"github.com/blues/grants/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	if err := logger.Init(cfg.Log); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwt_secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	deps := router.Deps{
		Tokens: auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
	}
	jobs := []task.Job{}

	// 初始化链客户端，未配置 RPC 时不做 gas 建议和贡献同步
	var chainManager *chain.Manager
	if cfg.Chain.RpcUrl != "" {
		chainManager, err = chain.NewManager(cfg.Chain)
		if err != nil {
			logger.Fatal("Failed to initialize chain client: %v", err)
		}
		defer chainManager.Close()
		deps.Chain = chainManager
	} else {
		logger.Warn("chain.rpc_url not configured, gas advice and contribution sync disabled")
	}

	// gas 价格建议，redis 可选
	if chainManager != nil {
		var cache gas.Cache
		if cfg.Redis.Addr != "" {
			redisCache, err := gas.NewRedisCache(cfg.Redis)
			if err != nil {
				logger.Warn("Redis unavailable, gas prices will not be cached: %v", err)
			} else {
				defer redisCache.Close()
				cache = redisCache
			}
		}
		deps.Fees = gas.NewAdvisor(chainManager, cache, cfg.Gas.CacheTTL)
		jobs = append(jobs, task.NewContributionSyncJob(db, chainManager, cfg.Chain, cfg.Task.ContributionInterval))
	}

	// logo 存储
	if cfg.Storage.Bucket != "" {
		store, err := asset.NewGCSStore(ctx, cfg.Storage)
		if err != nil {
			logger.Fatal("Failed to initialize asset store: %v", err)
		}
		defer store.Close()
		deps.Assets = store
	} else {
		logger.Warn("storage.bucket not configured, logo uploads are ignored")
	}

	// 通知发件箱与投递任务
	deps.Notifier = notify.NewOutbox(db)
	dispatcher := notify.NewDispatcher(db, notify.NewMailer(cfg.Mail), cfg.Notify)
	jobs = append(jobs, task.NewNotificationJob(dispatcher, cfg.Task.Interval))

	// 启动定时任务
	taskManager, err := task.Start(jobs...)
	if err != nil {
		logger.Fatal("Failed to start task manager: %v", err)
	}
	defer taskManager.Stop()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Setup(db, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}
	logger.Info("Server exited")
}
