package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shopify_erp_sync/internal/config"
	"shopify_erp_sync/internal/model"
	"shopify_erp_sync/internal/repository"
	"shopify_erp_sync/pkg/shopify"
)

// ErrMissingSKU 订单行缺少 SKU，无法映射为物料
var ErrMissingSKU = errors.New("line item has no sku")

// ItemService 物料解析
type ItemService struct {
	repo repository.ItemRepository
	cfg  config.ERPConfig
	log  *zap.Logger
}

// NewItemService 创建物料服务
func NewItemService(repo repository.ItemRepository, cfg config.ERPConfig, log *zap.Logger) *ItemService {
	return &ItemService{repo: repo, cfg: cfg, log: log}
}

// Ensure 确保订单行的 SKU 均已建档，返回新建的物料编码
func (s *ItemService) Ensure(ctx context.Context, lines []shopify.LineItem) ([]string, error) {
	var created []string
	seen := make(map[string]struct{}, len(lines))

	for i := range lines {
		line := &lines[i]
		if line.SKU == "" {
			return created, fmt.Errorf("%w: %q", ErrMissingSKU, shopify.LineItemName(line))
		}
		if _, ok := seen[line.SKU]; ok {
			continue
		}
		seen[line.SKU] = struct{}{}

		existing, err := s.repo.FindByCode(ctx, line.SKU)
		if err != nil {
			return created, fmt.Errorf("查询物料 %q 失败: %w", line.SKU, err)
		}
		if existing != nil {
			continue
		}

		item := &model.Item{
			ItemCode:  line.SKU,
			ItemName:  model.TruncateItemName(shopify.LineItemName(line)),
			ItemGroup: s.cfg.ItemGroup,
			StockUOM:  s.cfg.DefaultUOM,
		}
		if err := s.repo.Create(ctx, item); err != nil {
			return created, fmt.Errorf("创建物料 %q 失败: %w", line.SKU, err)
		}
		created = append(created, line.SKU)
		s.log.Info("[ItemService] 新建物料", zap.String("item_code", line.SKU))
	}
	return created, nil
}
