package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopify_erp_sync/internal/api/dto"
	"shopify_erp_sync/internal/service"
)

// SalesOrderController 销售订单控制器
type SalesOrderController struct {
	svc *service.SalesOrderService
}

// NewSalesOrderController 创建销售订单控制器
func NewSalesOrderController(svc *service.SalesOrderService) *SalesOrderController {
	return &SalesOrderController{svc: svc}
}

// List 销售订单列表
// GET /api/sales-orders
func (c *SalesOrderController) List(ctx *gin.Context) {
	var req dto.ListSalesOrdersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	resp, err := c.svc.List(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": resp})
}

// Get 按单号获取销售订单
// GET /api/sales-orders/:name
func (c *SalesOrderController) Get(ctx *gin.Context) {
	so, err := c.svc.Get(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		respondSalesOrderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": so})
}

// Delete 按单号删除销售订单
// DELETE /api/sales-orders/:name
func (c *SalesOrderController) Delete(ctx *gin.Context) {
	name := ctx.Param("name")
	if err := c.svc.Delete(ctx.Request.Context(), name); err != nil {
		respondSalesOrderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "销售订单已删除",
		"data":    gin.H{"name": name},
	})
}

func respondSalesOrderError(ctx *gin.Context, err error) {
	if errors.Is(err, service.ErrSalesOrderNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "销售订单不存在"})
		return
	}
	ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
}
