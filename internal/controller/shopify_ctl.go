package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopify_erp_sync/internal/service"
	"shopify_erp_sync/pkg/shopify"
)

// ShopifyController Shopify 订单查询（只读，不建单）
type ShopifyController struct {
	syncSvc *service.SyncService
}

// NewShopifyController 创建 Shopify 查询控制器
func NewShopifyController(syncSvc *service.SyncService) *ShopifyController {
	return &ShopifyController{syncSvc: syncSvc}
}

// GetOrder 查询单个 Shopify 订单
// GET /api/shopify/orders/:id
func (c *ShopifyController) GetOrder(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	order, err := c.syncSvc.LookupOrder(ctx.Request.Context(), id)
	if err != nil {
		respondShopifyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": order})
}

// GetOrderTaxes 查询订单税行
// GET /api/shopify/orders/:id/taxes
func (c *ShopifyController) GetOrderTaxes(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	resp, err := c.syncSvc.LookupOrderTaxes(ctx.Request.Context(), id)
	if err != nil {
		respondShopifyError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": resp})
}

func respondShopifyError(ctx *gin.Context, err error) {
	if errors.Is(err, shopify.ErrUnexpectedStatus) {
		ctx.JSON(http.StatusBadGateway, gin.H{"code": 502, "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
}
