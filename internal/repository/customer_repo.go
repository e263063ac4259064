package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopify_erp_sync/internal/model"
)

// ==================== CustomerRepository 客户仓库 ====================

// CustomerRepository 客户仓库接口
type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	// FindByName 按客户名查找，不存在时返回 nil, nil
	FindByName(ctx context.Context, name string) (*model.Customer, error)
}

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓库
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *customerRepository) FindByName(ctx context.Context, name string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).Where("customer_name = ?", name).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
