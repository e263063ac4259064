package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shopify_erp_sync/internal/config"
	"shopify_erp_sync/internal/model"
	"shopify_erp_sync/internal/repository"
	"shopify_erp_sync/pkg/shopify"
)

// CustomerName 客户名规范键：名 + 空格 + 姓
// 定时同步与 Webhook 两条路径统一使用此键
func CustomerName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// CustomerService 客户解析
type CustomerService struct {
	repo repository.CustomerRepository
	cfg  config.ERPConfig
	log  *zap.Logger
}

// NewCustomerService 创建客户服务
func NewCustomerService(repo repository.CustomerRepository, cfg config.ERPConfig, log *zap.Logger) *CustomerService {
	return &CustomerService{repo: repo, cfg: cfg, log: log}
}

// Resolve 按客户名获取或创建客户
// 买家信息缺失（或姓名为空）时返回 nil, nil，由调用方跳过该订单
func (s *CustomerService) Resolve(ctx context.Context, buyer *shopify.Customer) (*model.Customer, error) {
	if buyer == nil {
		return nil, nil
	}
	name := CustomerName(buyer.FirstName, buyer.LastName)
	if name == "" {
		return nil, nil
	}

	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("查询客户 %q 失败: %w", name, err)
	}
	if existing != nil {
		return existing, nil
	}

	customer := &model.Customer{
		CustomerName:  name,
		CustomerType:  model.CustomerTypeIndividual,
		CustomerGroup: s.cfg.CustomerGroup,
		Territory:     s.cfg.Territory,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("创建客户 %q 失败: %w", name, err)
	}

	s.log.Info("[CustomerService] 新建客户", zap.String("customer", name))
	return customer, nil
}
