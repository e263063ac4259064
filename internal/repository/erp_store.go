package repository

import (
	"context"

	"gorm.io/gorm"

	"shopify_erp_sync/internal/model"
)

// ERPStore ERP 单据存储（工作单元）
// 每个仓库调用返回即已持久化；需要多步原子性时使用 Transaction
type ERPStore struct {
	db          *gorm.DB
	Customers   CustomerRepository
	Addresses   AddressRepository
	Items       ItemRepository
	SalesOrders SalesOrderRepository
}

// NewERPStore 创建 ERP 存储
func NewERPStore(db *gorm.DB) *ERPStore {
	return &ERPStore{
		db:          db,
		Customers:   NewCustomerRepository(db),
		Addresses:   NewAddressRepository(db),
		Items:       NewItemRepository(db),
		SalesOrders: NewSalesOrderRepository(db),
	}
}

// Transaction 执行事务，fn 内只能使用传入的 store
func (s *ERPStore) Transaction(ctx context.Context, fn func(store *ERPStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewERPStore(tx))
	})
}

// Models 需要迁移的模型
func Models() []interface{} {
	return []interface{}{
		&model.Customer{},
		&model.Address{},
		&model.Item{},
		&model.SalesOrder{},
		&model.SalesOrderItem{},
		&model.SalesOrderTax{},
	}
}

// AutoMigrate 迁移 ERP 表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
