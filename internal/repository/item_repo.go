package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopify_erp_sync/internal/model"
)

// ItemRepository 物料仓库接口
type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	// FindByCode 按物料编码查找，不存在时返回 nil, nil
	FindByCode(ctx context.Context, code string) (*model.Item, error)
}

type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository 创建物料仓库
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepository) FindByCode(ctx context.Context, code string) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).Where("item_code = ?", code).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
