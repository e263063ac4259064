package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopify_erp_sync/internal/api/dto"
	"shopify_erp_sync/internal/config"
	"shopify_erp_sync/internal/metrics"
	"shopify_erp_sync/pkg/shopify"
)

// 同步操作名，用于指标与日志
const (
	OpSyncRecent      = "sync_recent"
	OpBackfill        = "backfill"
	OpSyncByIDs       = "sync_by_ids"
	OpShippingCharges = "shipping_charges"
	OpDiscounts       = "discounts"
	OpRemoveDupItems  = "remove_duplicates"
)

// ==================== 依赖接口 ====================

// OrderFetcher Shopify 订单拉取
type OrderFetcher interface {
	ListOrders(ctx context.Context, q shopify.OrderQuery) ([]shopify.Order, error)
	ListOrdersFirstPage(ctx context.Context, q shopify.OrderQuery) ([]shopify.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*shopify.Order, error)
}

// ==================== SyncService ====================

// SyncService 订单同步编排：拉取 → 建单 / 回填
type SyncService struct {
	fetcher OrderFetcher
	orders  *SalesOrderService
	cfg     config.SyncConfig
	log     *zap.Logger
}

// NewSyncService 创建同步服务
func NewSyncService(fetcher OrderFetcher, orders *SalesOrderService, cfg config.SyncConfig, log *zap.Logger) *SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncService{
		fetcher: fetcher,
		orders:  orders,
		cfg:     cfg,
		log:     log,
	}
}

// SyncRecent 拉取最近订单（仅第一页）并建单
func (s *SyncService) SyncRecent(ctx context.Context, trigger string) *dto.SyncResult {
	return s.run(ctx, OpSyncRecent, trigger, func(ctx context.Context) ([]shopify.Order, error) {
		return s.fetcher.ListOrdersFirstPage(ctx, shopify.OrderQuery{Limit: s.cfg.RecentLimit})
	})
}

// Backfill 从回填起始时间起拉取全部订单并建单
func (s *SyncService) Backfill(ctx context.Context, trigger string) *dto.SyncResult {
	return s.run(ctx, OpBackfill, trigger, func(ctx context.Context) ([]shopify.Order, error) {
		since := s.cfg.BackfillSince
		q := shopify.OrderQuery{Limit: s.cfg.BackfillLimit}
		if !since.IsZero() {
			q.CreatedAtMin = &since
		}
		return s.fetcher.ListOrders(ctx, q)
	})
}

// SyncByIDs 按 Shopify 订单 ID 逐个拉取并建单，拉取失败的订单记入 Errors
func (s *SyncService) SyncByIDs(ctx context.Context, orderIDs []int64) *dto.SyncResult {
	var fetchErrs []string
	result := s.run(ctx, OpSyncByIDs, dto.TriggerManual, func(ctx context.Context) ([]shopify.Order, error) {
		orders := make([]shopify.Order, 0, len(orderIDs))
		for _, id := range orderIDs {
			o, err := s.fetcher.GetOrder(ctx, id)
			if err != nil {
				fetchErrs = append(fetchErrs, fmt.Sprintf("订单 %d: %v", id, err))
				continue
			}
			orders = append(orders, *o)
		}
		return orders, nil
	})
	result.Errors = append(fetchErrs, result.Errors...)
	return result
}

// run 一次同步的公共流程：生成 run_id、拉取、建单、记录指标
// 拉取中断时仍处理已拉取到的订单
func (s *SyncService) run(ctx context.Context, op, trigger string, fetch func(ctx context.Context) ([]shopify.Order, error)) *dto.SyncResult {
	result := &dto.SyncResult{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		Created:   []string{},
		StartedAt: time.Now(),
	}
	log := s.log.With(zap.String("run_id", result.RunID), zap.String("op", op), zap.String("trigger", trigger))
	log.Info("[SyncService] 开始同步")

	orders, err := fetch(ctx)
	if err != nil {
		result.FetchError = err.Error()
		metrics.ShopifyFetchErrorsTotal.Inc()
		log.Warn("[SyncService] 拉取订单中断，继续处理已拉取的订单", zap.Int("fetched", len(orders)), zap.Error(err))
	}
	result.Fetched = len(orders)

	s.orders.CreateFromOrders(ctx, orders, result)

	result.FinishedAt = time.Now()
	s.observe(op, result.FinishedAt.Sub(result.StartedAt), err == nil && len(result.Errors) == 0)

	log.Info("[SyncService] 同步完成",
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.CreatedCount()),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)))
	return result
}

func (s *SyncService) observe(op string, d time.Duration, ok bool) {
	status := "success"
	if !ok {
		status = "partial"
	}
	metrics.SyncRunsTotal.WithLabelValues(op, status).Inc()
	metrics.SyncRunDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ==================== 回填 ====================

// BackfillShippingCharges 拉取全部订单，为草稿销售订单补充运费行
func (s *SyncService) BackfillShippingCharges(ctx context.Context) *dto.BackfillResult {
	return s.backfill(ctx, OpShippingCharges, s.orders.BackfillShippingCharges)
}

// BackfillDiscounts 拉取全部订单，为草稿销售订单补充折扣
func (s *SyncService) BackfillDiscounts(ctx context.Context) *dto.BackfillResult {
	return s.backfill(ctx, OpDiscounts, s.orders.BackfillDiscounts)
}

func (s *SyncService) backfill(ctx context.Context, op string, apply func(context.Context, []shopify.Order, *dto.BackfillResult)) *dto.BackfillResult {
	start := time.Now()
	result := &dto.BackfillResult{RunID: uuid.NewString(), Updated: []string{}}
	log := s.log.With(zap.String("run_id", result.RunID), zap.String("op", op))

	orders, err := s.fetcher.ListOrders(ctx, shopify.OrderQuery{Limit: s.cfg.BackfillLimit})
	if err != nil {
		metrics.ShopifyFetchErrorsTotal.Inc()
		result.Errors = append(result.Errors, fmt.Sprintf("拉取订单中断: %v", err))
		log.Warn("[SyncService] 拉取订单中断，继续处理已拉取的订单", zap.Int("fetched", len(orders)), zap.Error(err))
	}

	apply(ctx, orders, result)

	s.observe(op, time.Since(start), len(result.Errors) == 0)
	log.Info("[SyncService] 回填完成", zap.Int("scanned", result.Scanned), zap.Int("updated", len(result.Updated)))
	return result
}

// RemoveDuplicateItems 清理草稿订单的重复物料行
func (s *SyncService) RemoveDuplicateItems(ctx context.Context) (*dto.BackfillResult, error) {
	start := time.Now()
	result := &dto.BackfillResult{RunID: uuid.NewString(), Updated: []string{}}

	if err := s.orders.RemoveDuplicateItems(ctx, result); err != nil {
		s.observe(OpRemoveDupItems, time.Since(start), false)
		return nil, err
	}
	s.observe(OpRemoveDupItems, time.Since(start), len(result.Errors) == 0)
	return result, nil
}

// ==================== Shopify 查询 ====================

// LookupOrder 查询单个 Shopify 订单
func (s *SyncService) LookupOrder(ctx context.Context, orderID int64) (*shopify.Order, error) {
	return s.fetcher.GetOrder(ctx, orderID)
}

// LookupOrderTaxes 查询订单的税行与含税标记
func (s *SyncService) LookupOrderTaxes(ctx context.Context, orderID int64) (*dto.OrderTaxesResponse, error) {
	order, err := s.fetcher.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	resp := &dto.OrderTaxesResponse{
		OrderID:       shopify.OrderID(order),
		TaxLines:      toTaxLineVOs(order.TaxLines),
		TaxesIncluded: order.TaxesIncluded,
	}
	for _, li := range order.LineItems {
		resp.LineItems = append(resp.LineItems, dto.LineTaxesVO{
			SKU:      li.SKU,
			TaxLines: toTaxLineVOs(li.TaxLines),
		})
	}
	return resp, nil
}

func toTaxLineVOs(lines []shopify.TaxLine) []dto.TaxLineVO {
	vos := make([]dto.TaxLineVO, len(lines))
	for i, tl := range lines {
		vos[i] = dto.TaxLineVO{
			Title: tl.Title,
			Price: shopify.Money(tl.Price).StringFixed(2),
			Rate:  shopify.Money(tl.Rate).String(),
		}
	}
	return vos
}
