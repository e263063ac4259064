package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopify_erp_sync/internal/api/dto"
	"shopify_erp_sync/internal/task"
)

// SyncController 手动同步控制器
type SyncController struct {
	taskManager *task.TaskManager
}

// NewSyncController 创建同步控制器
func NewSyncController(taskManager *task.TaskManager) *SyncController {
	return &SyncController{taskManager: taskManager}
}

// ==================== 建单同步 ====================

// SyncOrders 同步最近订单（仅第一页）
// @Summary 手动同步最近订单
// @Tags Sync
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "已有同步在执行"
// @Failure 429 {object} map[string]interface{} "限流中"
// @Router /api/sync/orders [post]
func (c *SyncController) SyncOrders(ctx *gin.Context) {
	result, err := c.taskManager.SyncRecentNow(ctx.Request.Context())
	if err != nil {
		respondTaskError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "订单同步完成",
		"data":    result,
	})
}

// Backfill 全量回填
// @Summary 按 created_at_min 拉取全部订单并建单（后台执行）
// @Tags Sync
// @Success 202 {object} map[string]interface{}
// @Router /api/sync/backfill [post]
func (c *SyncController) Backfill(ctx *gin.Context) {
	if err := c.taskManager.TriggerBackfill(); err != nil {
		respondTaskError(ctx, err)
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{
		"code":    202,
		"message": "全量回填任务已启动",
	})
}

// SyncByIDs 按订单 ID 同步
// @Summary 按 Shopify 订单 ID 同步
// @Tags Sync
// @Param body body dto.SyncByIDsRequest true "订单 ID 列表"
// @Router /api/sync/orders/by-id [post]
func (c *SyncController) SyncByIDs(ctx *gin.Context) {
	var req dto.SyncByIDsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	result, err := c.taskManager.SyncByIDs(ctx.Request.Context(), req.OrderIDs)
	if err != nil {
		respondTaskError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "订单同步完成",
		"data":    result,
	})
}

// ==================== 草稿单修复 ====================

// ShippingCharges 运费回填
func (c *SyncController) ShippingCharges(ctx *gin.Context) {
	if err := c.taskManager.TriggerShippingBackfill(); err != nil {
		respondTaskError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"code": 202, "message": "运费回填任务已启动"})
}

// Discounts 折扣回填
func (c *SyncController) Discounts(ctx *gin.Context) {
	if err := c.taskManager.TriggerDiscountBackfill(); err != nil {
		respondTaskError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"code": 202, "message": "折扣回填任务已启动"})
}

// RemoveDuplicates 清理重复物料行
func (c *SyncController) RemoveDuplicates(ctx *gin.Context) {
	result, err := c.taskManager.RemoveDuplicateItems(ctx.Request.Context())
	if err != nil {
		respondTaskError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "重复物料行已清理",
		"data":    result,
	})
}

// Status 同步任务状态
// GET /api/sync/status
func (c *SyncController) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": c.taskManager.Status(),
	})
}

// ==================== 工具函数 ====================

func respondTaskError(ctx *gin.Context, err error) {
	var taskErr task.TaskError
	if errors.As(err, &taskErr) {
		status := http.StatusConflict
		if taskErr == task.ErrTaskStopped {
			status = http.StatusServiceUnavailable
		}
		ctx.JSON(status, gin.H{"code": status, "message": taskErr.Error()})
		return
	}
	ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
}

// parseID 解析路径中的数字 ID，失败时直接写 400 并返回 0
func parseID(ctx *gin.Context, key string) int64 {
	id, err := strconv.ParseInt(ctx.Param(key), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "无效的 ID"})
		return 0
	}
	return id
}
