package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopify_erp_sync/internal/config"
	"shopify_erp_sync/internal/controller"
	"shopify_erp_sync/internal/repository"
	"shopify_erp_sync/internal/router"
	"shopify_erp_sync/internal/service"
	"shopify_erp_sync/internal/task"
	"shopify_erp_sync/pkg/database"
	"shopify_erp_sync/pkg/logger"
	"shopify_erp_sync/pkg/shopify"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		// logger 尚未初始化
		zap.NewExample().Fatal("配置加载失败", zap.Error(err))
	}

	log := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. 初始化数据库
	db, err := database.InitDB(database.Options{
		DSN:      cfg.Database.DSN,
		LogLevel: cfg.Database.LogLevel,
	}, log, repository.AutoMigrate)
	if err != nil {
		log.Fatal("[Main] 数据库初始化失败", zap.Error(err))
	}

	// 3. 初始化依赖
	deps := initDependencies(cfg, db, log)

	// 4. 启动定时任务
	if err := deps.Tasks.Start(); err != nil {
		log.Fatal("[Main] 定时任务启动失败", zap.Error(err))
	}

	// 5. 初始化路由
	r := router.New(*deps.Controllers, router.Options{
		WebhookSecret:   cfg.Shopify.WebhookSecret,
		TriggerCooldown: cfg.Sync.TriggerCooldown,
		Logger:          log,
	})

	// 6. 启动服务
	startServer(cfg.Server.Port, r, deps.Tasks, log)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Store       *repository.ERPStore
	Services    *Services
	Tasks       *task.TaskManager
	Controllers *router.Controllers
}

// Services 服务集合
type Services struct {
	SalesOrder *service.SalesOrderService
	Sync       *service.SyncService
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, log *zap.Logger) *Dependencies {
	// -------- Repo 层 --------
	store := repository.NewERPStore(db)

	// -------- 外部客户端 --------
	shopifyClient, err := shopify.NewClient(shopify.Config{
		ShopURL:     cfg.Shopify.ShopURL,
		APIVersion:  cfg.Shopify.APIVersion,
		AccessToken: cfg.Shopify.AccessToken,
		Timeout:     cfg.Shopify.Timeout,
		ProxyURL:    cfg.Shopify.ProxyURL,
		Debug:       cfg.Shopify.Debug,
	}, log)
	if err != nil {
		log.Fatal("[Main] Shopify 客户端初始化失败", zap.Error(err))
	}

	// -------- 业务服务 --------
	salesOrderSvc := service.NewSalesOrderService(store, cfg.ERP, cfg.Sync.CutoffDate, log)
	services := &Services{
		SalesOrder: salesOrderSvc,
		Sync:       service.NewSyncService(shopifyClient, salesOrderSvc, cfg.Sync, log),
	}

	// -------- 任务 --------
	tasks := task.NewTaskManager(services.Sync, task.TaskManagerConfig{
		CronEnabled: cfg.Sync.Enabled,
		CronSpec:    cfg.Sync.CronSpec,
		RunTimeout:  cfg.Sync.RunTimeout,
		RunOnStart:  true,
	}, log)

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Health:     controller.NewHealthController(db),
		Sync:       controller.NewSyncController(tasks),
		SalesOrder: controller.NewSalesOrderController(services.SalesOrder),
		Shopify:    controller.NewShopifyController(services.Sync),
		Webhook:    controller.NewWebhookController(services.SalesOrder, log),
	}

	return &Dependencies{
		DB:          db,
		Store:       store,
		Services:    services,
		Tasks:       tasks,
		Controllers: controllers,
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务并等待退出信号
func startServer(port string, r *gin.Engine, tasks *task.TaskManager, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 异步启动服务
	go func() {
		log.Info("[Main] 服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("[Main] 服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Main] 正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("[Main] 服务强制关闭", zap.Error(err))
	}
	tasks.Stop()

	log.Info("[Main] 服务已退出")
}
