package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shopify_erp_sync/internal/model"
	"shopify_erp_sync/internal/repository"
	"shopify_erp_sync/pkg/shopify"
)

// AddressKey 地址查找策略
type AddressKey int

const (
	// AddressKeyTitle 以客户名为 address_title，数据取订单收货地址（定时同步路径）
	AddressKeyTitle AddressKey = iota
	// AddressKeyEmail 以买家邮箱为键，数据取买家默认地址（Webhook 路径）
	AddressKeyEmail
)

func (k AddressKey) String() string {
	switch k {
	case AddressKeyTitle:
		return "title"
	case AddressKeyEmail:
		return "email"
	default:
		return fmt.Sprintf("AddressKey(%d)", int(k))
	}
}

// AddressService 地址解析
type AddressService struct {
	repo repository.AddressRepository
	log  *zap.Logger
}

// NewAddressService 创建地址服务
func NewAddressService(repo repository.AddressRepository, log *zap.Logger) *AddressService {
	return &AddressService{repo: repo, log: log}
}

// Resolve 按策略获取或创建地址
// 订单缺少对应地址数据时返回 nil, nil
func (s *AddressService) Resolve(ctx context.Context, key AddressKey, order *shopify.Order, customerName string) (*model.Address, error) {
	switch key {
	case AddressKeyTitle:
		return s.resolveByTitle(ctx, order, customerName)
	case AddressKeyEmail:
		return s.resolveByEmail(ctx, order, customerName)
	default:
		return nil, fmt.Errorf("未知的地址策略: %s", key)
	}
}

func (s *AddressService) resolveByTitle(ctx context.Context, order *shopify.Order, customerName string) (*model.Address, error) {
	src := order.ShippingAddress
	if src == nil {
		return nil, nil
	}

	existing, err := s.findByTitle(ctx, customerName)
	if existing != nil || err != nil {
		return existing, err
	}

	address := addressFromOrder(src, customerName)
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("创建地址 %q 失败: %w", customerName, err)
	}
	return address, nil
}

// resolveByEmail 买家无邮箱时退回以客户名为键，避免每次推送都新建地址
func (s *AddressService) resolveByEmail(ctx context.Context, order *shopify.Order, customerName string) (*model.Address, error) {
	buyer := order.Customer
	if buyer == nil || buyer.DefaultAddress == nil {
		return nil, nil
	}

	var (
		existing *model.Address
		err      error
	)
	if buyer.Email != "" {
		existing, err = s.repo.FindByEmail(ctx, buyer.Email)
		if err != nil {
			return nil, fmt.Errorf("查询地址 %q 失败: %w", buyer.Email, err)
		}
	} else {
		existing, err = s.findByTitle(ctx, customerName)
		if err != nil {
			return nil, err
		}
	}
	if existing != nil {
		return existing, nil
	}

	address := addressFromCustomer(buyer.DefaultAddress, customerName)
	address.EmailID = buyer.Email
	if buyer.Phone != "" {
		address.Phone = buyer.Phone
	}
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("创建地址 %q 失败: %w", customerName, err)
	}
	s.log.Debug("[AddressService] 新建账单地址",
		zap.String("title", customerName),
		zap.Bool("email_keyed", buyer.Email != ""))
	return address, nil
}

func (s *AddressService) findByTitle(ctx context.Context, title string) (*model.Address, error) {
	existing, err := s.repo.FindByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("查询地址 %q 失败: %w", title, err)
	}
	return existing, nil
}

// addressFromOrder 订单收货地址
func addressFromOrder(src *shopify.Address, title string) *model.Address {
	return &model.Address{
		AddressTitle: title,
		AddressType:  model.AddressTypeShipping,
		AddressLine1: src.Address1,
		AddressLine2: src.Address2,
		City:         src.City,
		State:        src.Province,
		Pincode:      src.Zip,
		Country:      src.Country,
		Phone:        src.Phone,
	}
}

// addressFromCustomer 买家默认地址
func addressFromCustomer(src *shopify.CustomerAddress, title string) *model.Address {
	return &model.Address{
		AddressTitle: title,
		AddressType:  model.AddressTypeBilling,
		AddressLine1: src.Address1,
		AddressLine2: src.Address2,
		City:         src.City,
		State:        src.Province,
		Pincode:      src.Zip,
		Country:      src.Country,
		Phone:        src.Phone,
	}
}
