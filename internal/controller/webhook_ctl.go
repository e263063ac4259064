package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopify_erp_sync/internal/middleware"
	"shopify_erp_sync/internal/service"
	"shopify_erp_sync/pkg/shopify"
)

// WebhookController Shopify 订单 Webhook
type WebhookController struct {
	svc *service.SalesOrderService
	log *zap.Logger
}

// NewWebhookController 创建 Webhook 控制器
func NewWebhookController(svc *service.SalesOrderService, log *zap.Logger) *WebhookController {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookController{svc: svc, log: log}
}

// OrderCreated 订单创建推送
// POST /api/webhooks/shopify/orders
func (c *WebhookController) OrderCreated(ctx *gin.Context) {
	// 请求体大小由 ShopifyWebhookAuth 限制
	raw, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		middleware.AbortBodyError(ctx, err)
		return
	}

	var order shopify.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "订单 JSON 解析失败: " + err.Error()})
		return
	}
	if order.Id == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "缺少订单 ID"})
		return
	}

	so, created, err := c.svc.CreateFromWebhook(ctx.Request.Context(), &order, raw)
	if err != nil {
		if errors.Is(err, service.ErrMissingCustomer) {
			ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "订单缺少客户信息"})
			return
		}
		c.log.Error("[WebhookController] Webhook 建单失败", zap.Int64("shopify_order_id", shopify.OrderID(&order)), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	if !created {
		ctx.JSON(http.StatusOK, gin.H{
			"code":    200,
			"message": "订单已同步",
			"data":    gin.H{"name": so.Name, "shopify_order_id": shopify.OrderID(&order)},
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"code":    201,
		"message": "销售订单已创建",
		"data":    gin.H{"name": so.Name, "shopify_order_id": shopify.OrderID(&order)},
	})
}
