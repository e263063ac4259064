package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"shopify_erp_sync/internal/api/dto"
	"shopify_erp_sync/internal/config"
	"shopify_erp_sync/internal/metrics"
	"shopify_erp_sync/internal/model"
	"shopify_erp_sync/internal/repository"
	"shopify_erp_sync/pkg/shopify"
)

var (
	// ErrSalesOrderNotFound 销售订单不存在
	ErrSalesOrderNotFound = errors.New("sales order not found")
	// ErrMissingCustomer 订单没有买家信息
	ErrMissingCustomer = errors.New("order has no customer")
)

// createMode 建单路径的差异点
type createMode struct {
	trigger      string
	addressKey   AddressKey
	taxStrategy  TaxStrategy
	deliveryDate func(order *shopify.Order) time.Time
}

// SalesOrderService 销售订单服务：Shopify 订单 → ERP 单据
type SalesOrderService struct {
	store     *repository.ERPStore
	erp       config.ERPConfig
	cutoff    time.Time
	customers *CustomerService
	addresses *AddressService
	items     *ItemService
	taxes     *TaxPlanner
	log       *zap.Logger
	now       func() time.Time
}

// NewSalesOrderService 创建销售订单服务
func NewSalesOrderService(store *repository.ERPStore, erp config.ERPConfig, cutoff time.Time, log *zap.Logger) *SalesOrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SalesOrderService{
		store:     store,
		erp:       erp,
		cutoff:    cutoff,
		customers: NewCustomerService(store.Customers, erp, log),
		addresses: NewAddressService(store.Addresses, log),
		items:     NewItemService(store.Items, erp, log),
		taxes:     NewTaxPlanner(erp),
		log:       log,
		now:       time.Now,
	}
}

func (s *SalesOrderService) scheduledMode(trigger string) createMode {
	return createMode{
		trigger:     trigger,
		addressKey:  AddressKeyTitle,
		taxStrategy: TaxStrategyFlat,
		deliveryDate: func(*shopify.Order) time.Time {
			return s.now()
		},
	}
}

func (s *SalesOrderService) webhookMode() createMode {
	return createMode{
		trigger:     dto.TriggerWebhook,
		addressKey:  AddressKeyEmail,
		taxStrategy: TaxStrategyPerLine,
		deliveryDate: func(o *shopify.Order) time.Time {
			return shopify.CreatedAt(o)
		},
	}
}

// ==================== 批量建单 ====================

// CreateFromOrders 逐个订单建单，单个订单失败（含 panic）只记录，不影响后续订单
func (s *SalesOrderService) CreateFromOrders(ctx context.Context, orders []shopify.Order, result *dto.SyncResult) {
	mode := s.scheduledMode(result.Trigger)

	for i := range orders {
		order := &orders[i]

		if s.beforeCutoff(order) {
			result.Skipped++
			metrics.OrdersSkippedTotal.WithLabelValues(metrics.SkipReasonCutoff).Inc()
			continue
		}

		so, err := s.safeCreate(ctx, order, nil, mode)
		if err != nil {
			msg := fmt.Sprintf("订单 %d (%s): %v", shopify.OrderID(order), order.Name, err)
			result.Errors = append(result.Errors, msg)
			metrics.OrderErrorsTotal.WithLabelValues(mode.trigger).Inc()
			s.log.Error("[SalesOrderService] 建单失败",
				zap.String("run_id", result.RunID),
				zap.Int64("shopify_order_id", shopify.OrderID(order)),
				zap.Error(err))
			continue
		}
		if so == nil {
			result.Skipped++
			continue
		}
		result.Created = append(result.Created, so.Name)
	}
}

// CreateFromWebhook Webhook 推送的单个订单建单
// 已同步过的订单直接返回已有单据，created 为 false
func (s *SalesOrderService) CreateFromWebhook(ctx context.Context, order *shopify.Order, raw []byte) (so *model.SalesOrder, created bool, err error) {
	existing, err := s.store.SalesOrders.FindByShopifyOrderID(ctx, shopify.OrderID(order))
	if err != nil {
		return nil, false, fmt.Errorf("查询销售订单失败: %w", err)
	}
	if existing != nil {
		metrics.OrdersSkippedTotal.WithLabelValues(metrics.SkipReasonExists).Inc()
		return existing, false, nil
	}
	if order.Customer == nil {
		return nil, false, ErrMissingCustomer
	}

	so, err = s.safeCreate(ctx, order, raw, s.webhookMode())
	if err != nil {
		metrics.OrderErrorsTotal.WithLabelValues(dto.TriggerWebhook).Inc()
		return nil, false, err
	}
	if so == nil {
		return nil, false, ErrMissingCustomer
	}
	return so, true, nil
}

func (s *SalesOrderService) beforeCutoff(order *shopify.Order) bool {
	created := shopify.CreatedAt(order)
	if s.cutoff.IsZero() || created.IsZero() {
		return false
	}
	return created.Before(s.cutoff)
}

// safeCreate 把 panic 转为错误
func (s *SalesOrderService) safeCreate(ctx context.Context, order *shopify.Order, raw []byte, mode createMode) (so *model.SalesOrder, err error) {
	defer func() {
		if r := recover(); r != nil {
			so, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.createOne(ctx, order, raw, mode)
}

// createOne 建单；返回 nil, nil 表示跳过（已同步或无客户）
func (s *SalesOrderService) createOne(ctx context.Context, order *shopify.Order, raw []byte, mode createMode) (*model.SalesOrder, error) {
	exists, err := s.store.SalesOrders.ExistsByShopifyOrderID(ctx, shopify.OrderID(order))
	if err != nil {
		return nil, fmt.Errorf("检查订单是否已同步失败: %w", err)
	}
	if exists {
		metrics.OrdersSkippedTotal.WithLabelValues(metrics.SkipReasonExists).Inc()
		return nil, nil
	}

	customer, err := s.customers.Resolve(ctx, order.Customer)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		s.log.Warn("[SalesOrderService] 订单没有买家信息，跳过", zap.Int64("shopify_order_id", shopify.OrderID(order)))
		metrics.OrdersSkippedTotal.WithLabelValues(metrics.SkipReasonNoCustomer).Inc()
		return nil, nil
	}

	address, err := s.addresses.Resolve(ctx, mode.addressKey, order, customer.CustomerName)
	if err != nil {
		return nil, err
	}

	if _, err := s.items.Ensure(ctx, order.LineItems); err != nil {
		return nil, err
	}

	so, err := s.buildSalesOrder(order, raw, customer, address, mode)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *repository.ERPStore) error {
		if err := tx.SalesOrders.Create(ctx, so); err != nil {
			return fmt.Errorf("写入销售订单失败: %w", err)
		}
		_, err := s.appendShippingCharge(ctx, tx, so, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.SalesOrdersCreatedTotal.WithLabelValues(mode.trigger).Inc()
	s.log.Info("[SalesOrderService] 销售订单已创建",
		zap.String("name", so.Name),
		zap.Int64("shopify_order_id", shopify.OrderID(order)),
		zap.String("customer", so.Customer),
		zap.String("tax_category", so.TaxCategory),
		zap.Int("items", len(so.Items)))
	return so, nil
}

// buildSalesOrder 组装销售订单（物料行、税费行、折扣）
func (s *SalesOrderService) buildSalesOrder(
	order *shopify.Order,
	raw []byte,
	customer *model.Customer,
	address *model.Address,
	mode createMode,
) (*model.SalesOrder, error) {
	deliveryDate := mode.deliveryDate(order)
	items := s.buildItems(order, deliveryDate, mode.taxStrategy)
	plan := s.taxes.Plan(mode.taxStrategy, order, items)

	if raw == nil {
		b, err := json.Marshal(order)
		if err != nil {
			return nil, fmt.Errorf("序列化订单失败: %w", err)
		}
		raw = b
	}

	so := &model.SalesOrder{
		ShopifyOrderID:     shopify.OrderID(order),
		ShopifyOrderNumber: order.Name,
		Company:            s.erp.Company,
		Customer:           customer.CustomerName,
		OrderType:          model.OrderTypeSales,
		Currency:           order.Currency,
		TaxCategory:        plan.Category,
		TaxesAndCharges:    plan.Template,
		DeliveryDate:       deliveryDate,
		TransactionDate:    transactionDate(order, s.now()),
		DocStatus:          model.DocStatusDraft,
		ShopifyRawData:     datatypes.JSON(raw),
		Items:              items,
		Taxes:              plan.Taxes,
	}
	if address != nil {
		so.CustomerAddressID = &address.ID
	}
	if amount, ok := discountAmount(order); ok {
		so.ApplyDiscountOn = model.ApplyDiscountOnGrandTotal
		so.DiscountAmount = amount
	}
	return so, nil
}

// buildItems 订单行 → 物料行
// SKU 与单价都相同的订单行合并为一行（数量、逐行税额累加），单价不同则各占一行
func (s *SalesOrderService) buildItems(order *shopify.Order, deliveryDate time.Time, strategy TaxStrategy) []model.SalesOrderItem {
	items := make([]model.SalesOrderItem, 0, len(order.LineItems))
	index := make(map[string]int, len(order.LineItems))

	for i := range order.LineItems {
		line := &order.LineItems[i]
		rate := shopify.Money(line.Price)
		key := itemKey(line.SKU, rate)

		if pos, ok := index[key]; ok {
			merged := &items[pos]
			merged.Qty += line.Quantity
			if strategy == TaxStrategyPerLine {
				MergeLineTaxes(merged, line)
			}
			s.log.Debug("[SalesOrderService] 订单行 SKU 与单价相同，已合并",
				zap.Int64("shopify_order_id", shopify.OrderID(order)),
				zap.String("sku", line.SKU),
				zap.Int("qty", merged.Qty))
			continue
		}

		item := model.SalesOrderItem{
			Idx:          len(items) + 1,
			ItemCode:     line.SKU,
			ItemName:     model.TruncateItemName(shopify.LineItemName(line)),
			Rate:         rate,
			Qty:          line.Quantity,
			Warehouse:    s.erp.Warehouse,
			DeliveryDate: deliveryDate,
			UOM:          s.erp.DefaultUOM,
			GSTTreatment: model.GSTTreatmentTaxable,
		}
		if strategy == TaxStrategyPerLine {
			ApplyLineTaxes(&item, line)
		}
		index[key] = len(items)
		items = append(items, item)
	}
	return items
}

// itemKey 物料行唯一键：物料编码 + 单价
func itemKey(code string, rate decimal.Decimal) string {
	return code + "|" + rate.String()
}

func transactionDate(order *shopify.Order, fallback time.Time) time.Time {
	created := shopify.CreatedAt(order)
	if created.IsZero() {
		return fallback
	}
	return created
}

// discountAmount 取第一个折扣码金额的整数部分
func discountAmount(order *shopify.Order) (decimal.Decimal, bool) {
	amount, ok := shopify.FirstDiscountAmount(order)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(amount.IntPart()), true
}

// ==================== 运费 ====================

// appendShippingCharge 第一条运费行金额大于 0 时追加 SHIPPING CHARGES 物料行
// 已存在运费行时不重复追加
func (s *SalesOrderService) appendShippingCharge(ctx context.Context, store *repository.ERPStore, so *model.SalesOrder, order *shopify.Order) (bool, error) {
	price, ok := shopify.FirstShippingPrice(order)
	if !ok || !price.IsPositive() {
		return false, nil
	}
	if so.HasItem(model.ShippingItemCode) {
		return false, nil
	}

	item := model.SalesOrderItem{
		SalesOrderID: so.ID,
		Idx:          so.NextItemIdx(),
		ItemCode:     model.ShippingItemCode,
		ItemName:     model.ShippingItemCode,
		Rate:         price,
		Qty:          1,
		Warehouse:    s.erp.Warehouse,
		DeliveryDate: s.now(),
		UOM:          s.erp.ShippingUOM,
	}
	if err := store.SalesOrders.AppendItem(ctx, &item); err != nil {
		return false, fmt.Errorf("追加运费行失败: %w", err)
	}
	so.Items = append(so.Items, item)
	return true, nil
}

// BackfillShippingCharges 为已同步的草稿订单补充运费行
func (s *SalesOrderService) BackfillShippingCharges(ctx context.Context, orders []shopify.Order, result *dto.BackfillResult) {
	for i := range orders {
		order := &orders[i]
		price, ok := shopify.FirstShippingPrice(order)
		if !ok {
			continue
		}

		so, err := s.findDraft(ctx, shopify.OrderID(order))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("订单 %d: %v", shopify.OrderID(order), err))
			continue
		}
		if so == nil {
			continue
		}
		result.Scanned++

		appended, err := s.appendShippingCharge(ctx, s.store, so, order)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("订单 %d: %v", shopify.OrderID(order), err))
			s.log.Error("[SalesOrderService] 运费回填失败", zap.Int64("shopify_order_id", shopify.OrderID(order)), zap.Error(err))
			continue
		}
		if appended {
			result.Updated = append(result.Updated, so.Name)
			result.Values = append(result.Values, price.StringFixed(2))
		}
	}
}

// ==================== 折扣 ====================

// BackfillDiscounts 为已同步的草稿订单补充折扣
func (s *SalesOrderService) BackfillDiscounts(ctx context.Context, orders []shopify.Order, result *dto.BackfillResult) {
	for i := range orders {
		order := &orders[i]
		amount, ok := discountAmount(order)
		if !ok {
			continue
		}

		so, err := s.findDraft(ctx, shopify.OrderID(order))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("订单 %d: %v", shopify.OrderID(order), err))
			continue
		}
		if so == nil {
			continue
		}
		result.Scanned++

		err = s.store.SalesOrders.UpdateFields(ctx, so.ID, map[string]interface{}{
			"apply_discount_on": model.ApplyDiscountOnGrandTotal,
			"discount_amount":   amount,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("订单 %d: %v", shopify.OrderID(order), err))
			s.log.Error("[SalesOrderService] 折扣回填失败", zap.Int64("shopify_order_id", shopify.OrderID(order)), zap.Error(err))
			continue
		}
		result.Updated = append(result.Updated, so.Name)
		result.Values = append(result.Values, amount.String())
	}
}

// findDraft 按 Shopify 订单 ID 查找草稿销售订单，非草稿视为不存在
func (s *SalesOrderService) findDraft(ctx context.Context, shopifyOrderID int64) (*model.SalesOrder, error) {
	so, err := s.store.SalesOrders.FindByShopifyOrderID(ctx, shopifyOrderID)
	if err != nil {
		return nil, fmt.Errorf("查询销售订单失败: %w", err)
	}
	if so == nil || !so.IsDraft() {
		return nil, nil
	}
	return so, nil
}

// ==================== 重复物料清理 ====================

// RemoveDuplicateItems 删除草稿订单中重复的物料行，同一物料编码 + 单价只保留第一行
func (s *SalesOrderService) RemoveDuplicateItems(ctx context.Context, result *dto.BackfillResult) error {
	drafts, err := s.store.SalesOrders.ListDrafts(ctx)
	if err != nil {
		return fmt.Errorf("查询草稿订单失败: %w", err)
	}

	for i := range drafts {
		so := &drafts[i]
		result.Scanned++

		dupIDs := duplicateItemIDs(so.Items)
		if len(dupIDs) == 0 {
			continue
		}
		if _, err := s.store.SalesOrders.DeleteItems(ctx, dupIDs); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", so.Name, err))
			s.log.Error("[SalesOrderService] 删除重复物料失败", zap.String("name", so.Name), zap.Error(err))
			continue
		}
		result.Updated = append(result.Updated, so.Name)
		s.log.Info("[SalesOrderService] 已删除重复物料行", zap.String("name", so.Name), zap.Int("removed", len(dupIDs)))
	}
	return nil
}

// duplicateItemIDs items 需按 idx 排序
func duplicateItemIDs(items []model.SalesOrderItem) []int64 {
	var ids []int64
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		key := itemKey(it.ItemCode, it.Rate)
		if _, ok := seen[key]; ok {
			ids = append(ids, it.ID)
			continue
		}
		seen[key] = struct{}{}
	}
	return ids
}

// ==================== 查询 / 删除 ====================

// Get 按单号获取销售订单
func (s *SalesOrderService) Get(ctx context.Context, name string) (*model.SalesOrder, error) {
	so, err := s.store.SalesOrders.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("查询销售订单失败: %w", err)
	}
	if so == nil {
		return nil, ErrSalesOrderNotFound
	}
	return so, nil
}

// List 销售订单列表
func (s *SalesOrderService) List(ctx context.Context, req *dto.ListSalesOrdersRequest) (*dto.ListSalesOrdersResponse, error) {
	filter := repository.SalesOrderFilter{
		Customer:  req.Customer,
		DocStatus: req.DocStatus,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if req.StartDate != "" {
		if t, err := time.Parse("2006-01-02", req.StartDate); err == nil {
			filter.StartDate = &t
		}
	}
	if req.EndDate != "" {
		if t, err := time.Parse("2006-01-02", req.EndDate); err == nil {
			endOfDay := t.Add(24*time.Hour - time.Second)
			filter.EndDate = &endOfDay
		}
	}

	orders, total, err := s.store.SalesOrders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("查询销售订单列表失败: %w", err)
	}

	list := make([]dto.SalesOrderListVO, len(orders))
	for i := range orders {
		so := &orders[i]
		list[i] = dto.SalesOrderListVO{
			ID:                 so.ID,
			Name:               so.Name,
			ShopifyOrderID:     so.ShopifyOrderID,
			ShopifyOrderNumber: so.ShopifyOrderNumber,
			Customer:           so.Customer,
			TaxCategory:        so.TaxCategory,
			ItemCount:          len(so.Items),
			NetTotal:           so.NetTotal().StringFixed(2),
			DiscountAmount:     so.DiscountAmount.StringFixed(2),
			DocStatus:          so.DocStatus,
			TransactionDate:    so.TransactionDate,
			CreatedAt:          so.CreatedAt,
		}
	}

	return &dto.ListSalesOrdersResponse{Total: total, List: list}, nil
}

// Delete 按单号删除销售订单及其子表
func (s *SalesOrderService) Delete(ctx context.Context, name string) error {
	return s.store.Transaction(ctx, func(tx *repository.ERPStore) error {
		so, err := tx.SalesOrders.FindByName(ctx, name)
		if err != nil {
			return fmt.Errorf("查询销售订单失败: %w", err)
		}
		if so == nil {
			return ErrSalesOrderNotFound
		}
		if err := tx.SalesOrders.Delete(ctx, so.ID); err != nil {
			return fmt.Errorf("删除销售订单失败: %w", err)
		}
		s.log.Info("[SalesOrderService] 销售订单已删除", zap.String("name", name), zap.Int64("shopify_order_id", so.ShopifyOrderID))
		return nil
	})
}
