package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopify_erp_sync/internal/model"
)

// AddressRepository 地址仓库接口
type AddressRepository interface {
	Create(ctx context.Context, address *model.Address) error
	FindByTitle(ctx context.Context, title string) (*model.Address, error)
	FindByEmail(ctx context.Context, email string) (*model.Address, error)
}

type addressRepository struct {
	db *gorm.DB
}

// NewAddressRepository 创建地址仓库
func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(ctx context.Context, address *model.Address) error {
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *addressRepository) FindByTitle(ctx context.Context, title string) (*model.Address, error) {
	return r.findOne(ctx, "address_title = ?", title)
}

func (r *addressRepository) FindByEmail(ctx context.Context, email string) (*model.Address, error) {
	return r.findOne(ctx, "email_id = ?", email)
}

// findOne 取最早创建的一条，不存在时返回 nil, nil
func (r *addressRepository) findOne(ctx context.Context, query string, arg string) (*model.Address, error) {
	var address model.Address
	err := r.db.WithContext(ctx).Where(query, arg).Order("id ASC").First(&address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}
