package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"shopify_erp_sync/internal/controller"
	"shopify_erp_sync/internal/middleware"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Health     *controller.HealthController
	Sync       *controller.SyncController
	SalesOrder *controller.SalesOrderController
	Shopify    *controller.ShopifyController
	Webhook    *controller.WebhookController
}

// Options 路由选项
type Options struct {
	WebhookSecret   string        // 为空时不校验签名
	TriggerCooldown time.Duration // 手动同步冷却时间，<=0 不限流
	Logger          *zap.Logger
}

// New 创建 gin 引擎并注册全局中间件
func New(ctls Controllers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())
	if opts.Logger != nil {
		r.Use(middleware.AccessLog(opts.Logger))
	}
	InitRoutes(r, ctls, opts)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctls Controllers, opts Options) {
	// 1. 运维
	r.GET("/healthz", ctls.Health.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewSyncRateLimiter()
	limit := func(t middleware.SyncType) gin.HandlerFunc {
		return middleware.SyncRateLimit(limiter, t, opts.TriggerCooldown)
	}

	// 2. API 路由组
	api := r.Group("/api")
	{
		// sync 手动同步
		sync := api.Group("/sync")
		{
			// POST /api/sync/orders
			sync.POST("/orders", limit(middleware.SyncTypeRecent), ctls.Sync.SyncOrders)
			sync.POST("/orders/by-id", limit(middleware.SyncTypeByIDs), ctls.Sync.SyncByIDs)
			sync.POST("/backfill", limit(middleware.SyncTypeBackfill), ctls.Sync.Backfill)
			sync.POST("/shipping-charges", limit(middleware.SyncTypeShippingCharges), ctls.Sync.ShippingCharges)
			sync.POST("/discounts", limit(middleware.SyncTypeDiscounts), ctls.Sync.Discounts)
			sync.POST("/remove-duplicates", limit(middleware.SyncTypeRemoveDups), ctls.Sync.RemoveDuplicates)
			sync.GET("/status", ctls.Sync.Status)
		}

		// shopify 只读查询
		shopify := api.Group("/shopify")
		{
			shopify.GET("/orders/:id", ctls.Shopify.GetOrder)
			shopify.GET("/orders/:id/taxes", ctls.Shopify.GetOrderTaxes)
		}

		// sales-orders 销售订单
		salesOrders := api.Group("/sales-orders")
		{
			salesOrders.GET("", ctls.SalesOrder.List)
			salesOrders.GET("/:name", ctls.SalesOrder.Get)
			salesOrders.DELETE("/:name", ctls.SalesOrder.Delete)
		}

		// webhooks
		webhooks := api.Group("/webhooks")
		{
			// POST /api/webhooks/shopify/orders
			webhooks.POST("/shopify/orders", middleware.ShopifyWebhookAuth(opts.WebhookSecret), ctls.Webhook.OrderCreated)
		}
	}
}
