package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shopify_erp_sync/internal/model"
)

// ==================== 过滤条件 ====================

// SalesOrderFilter 销售订单过滤条件
type SalesOrderFilter struct {
	Customer  string
	DocStatus *int
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// ==================== SalesOrderRepository 销售订单仓库 ====================

// SalesOrderRepository 销售订单仓库接口
type SalesOrderRepository interface {
	// Create 连同物料行、税费行一起写入
	Create(ctx context.Context, order *model.SalesOrder) error
	ExistsByShopifyOrderID(ctx context.Context, shopifyOrderID int64) (bool, error)
	FindByShopifyOrderID(ctx context.Context, shopifyOrderID int64) (*model.SalesOrder, error)
	FindByName(ctx context.Context, name string) (*model.SalesOrder, error)
	List(ctx context.Context, filter SalesOrderFilter) ([]model.SalesOrder, int64, error)
	ListDrafts(ctx context.Context) ([]model.SalesOrder, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// 子表
	AppendItem(ctx context.Context, item *model.SalesOrderItem) error
	DeleteItems(ctx context.Context, itemIDs []int64) (int64, error)

	// Delete 删除订单及其子表
	Delete(ctx context.Context, id int64) error
}

// ==================== 实现 ====================

type salesOrderRepository struct {
	db *gorm.DB
}

// NewSalesOrderRepository 创建销售订单仓库
func NewSalesOrderRepository(db *gorm.DB) SalesOrderRepository {
	return &salesOrderRepository{db: db}
}

func (r *salesOrderRepository) Create(ctx context.Context, order *model.SalesOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *salesOrderRepository) ExistsByShopifyOrderID(ctx context.Context, shopifyOrderID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SalesOrder{}).
		Where("shopify_order_id = ?", shopifyOrderID).
		Count(&count).Error
	return count > 0, err
}

func (r *salesOrderRepository) FindByShopifyOrderID(ctx context.Context, shopifyOrderID int64) (*model.SalesOrder, error) {
	return r.findOne(ctx, "shopify_order_id = ?", shopifyOrderID)
}

func (r *salesOrderRepository) FindByName(ctx context.Context, name string) (*model.SalesOrder, error) {
	return r.findOne(ctx, "name = ?", name)
}

func (r *salesOrderRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.SalesOrder, error) {
	var order model.SalesOrder
	err := r.withChildren(r.db.WithContext(ctx)).Where(query, arg).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// withChildren 预加载子表，按 idx 排序
func (r *salesOrderRepository) withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("idx ASC, id ASC")
		}).
		Preload("Taxes", func(db *gorm.DB) *gorm.DB {
			return db.Order("idx ASC, id ASC")
		})
}

func (r *salesOrderRepository) List(ctx context.Context, filter SalesOrderFilter) ([]model.SalesOrder, int64, error) {
	var orders []model.SalesOrder
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SalesOrder{})

	if filter.Customer != "" {
		db = db.Where("customer = ?", filter.Customer)
	}
	if filter.DocStatus != nil {
		db = db.Where("doc_status = ?", *filter.DocStatus)
	}
	if filter.StartDate != nil {
		db = db.Where("transaction_date >= ?", filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("transaction_date <= ?", filter.EndDate)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := r.withChildren(db).
		Order("id DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&orders).Error

	return orders, total, err
}

func (r *salesOrderRepository) ListDrafts(ctx context.Context) ([]model.SalesOrder, error) {
	var orders []model.SalesOrder
	err := r.withChildren(r.db.WithContext(ctx)).
		Where("doc_status = ?", model.DocStatusDraft).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *salesOrderRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.SalesOrder{}).Where("id = ?", id).Updates(fields).Error
}

func (r *salesOrderRepository) AppendItem(ctx context.Context, item *model.SalesOrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *salesOrderRepository) DeleteItems(ctx context.Context, itemIDs []int64) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", itemIDs).Delete(&model.SalesOrderItem{})
	return result.RowsAffected, result.Error
}

// Delete 子表显式删除，不依赖数据库级联（sqlite 默认不启用外键）
func (r *salesOrderRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("sales_order_id = ?", id).Delete(&model.SalesOrderItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("sales_order_id = ?", id).Delete(&model.SalesOrderTax{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.SalesOrder{}, id).Error
}
