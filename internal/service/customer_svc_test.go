package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopify_erp_sync/internal/model"
	"shopify_erp_sync/internal/repository"
	"shopify_erp_sync/pkg/shopify"
)

func TestCustomerName(t *testing.T) {
	tests := []struct {
		first, last string
		want        string
	}{
		{"Asha", "Patel", "Asha Patel"},
		{" Asha ", "Patel ", "Asha Patel"},
		{"Asha", "", "Asha"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := CustomerName(tt.first, tt.last); got != tt.want {
			t.Errorf("CustomerName(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}

func TestCustomerService_Resolve(t *testing.T) {
	store := repository.NewERPStore(setupTestDB(t))
	svc := NewCustomerService(store.Customers, testERPConfig(), zap.NewNop())
	ctx := context.Background()

	c, err := svc.Resolve(ctx, &shopify.Customer{FirstName: "Ravi", LastName: "Shah"})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Ravi Shah", c.CustomerName)
	assert.Equal(t, model.CustomerTypeIndividual, c.CustomerType)
	assert.Equal(t, "Shopify", c.CustomerGroup)
	assert.Equal(t, "All Territories", c.Territory)

	again, err := svc.Resolve(ctx, &shopify.Customer{FirstName: "Ravi", LastName: "Shah", Email: "other@example.com"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID, "同名买家复用同一客户")

	none, err := svc.Resolve(ctx, nil)
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestAddressService_Strategies(t *testing.T) {
	store := repository.NewERPStore(setupTestDB(t))
	svc := NewAddressService(store.Addresses, zap.NewNop())
	ctx := context.Background()

	order := newOrder(1, "Gujarat", "SKU-A")

	byTitle, err := svc.Resolve(ctx, AddressKeyTitle, &order, "Asha Patel")
	require.NoError(t, err)
	require.NotNil(t, byTitle)
	assert.Equal(t, "Asha Patel", byTitle.AddressTitle)
	assert.Equal(t, "395003", byTitle.Pincode)
	assert.Empty(t, byTitle.EmailID)
	assert.Equal(t, model.AddressTypeShipping, byTitle.AddressType)

	// 邮箱键与标题键互不复用
	byEmail, err := svc.Resolve(ctx, AddressKeyEmail, &order, "Asha Patel")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.NotEqual(t, byTitle.ID, byEmail.ID)
	assert.Equal(t, "asha@example.com", byEmail.EmailID)
	assert.Equal(t, model.AddressTypeBilling, byEmail.AddressType)

	again, err := svc.Resolve(ctx, AddressKeyEmail, &order, "Asha Patel")
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID, again.ID)

	order.Customer.DefaultAddress = nil
	none, err := svc.Resolve(ctx, AddressKeyEmail, &order, "Asha Patel")
	assert.NoError(t, err)
	assert.Nil(t, none)

	_, err = svc.Resolve(ctx, AddressKey(9), &order, "Asha Patel")
	assert.Error(t, err)
}

func TestItemService_Ensure(t *testing.T) {
	store := repository.NewERPStore(setupTestDB(t))
	svc := NewItemService(store.Items, testERPConfig(), zap.NewNop())
	ctx := context.Background()

	lines := []shopify.LineItem{
		{SKU: "SKU-A", Name: "Cotton"},
		{SKU: "SKU-A", Name: "Cotton again"},
		{SKU: "SKU-B", Title: "Silk"},
	}
	created, err := svc.Ensure(ctx, lines)
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU-A", "SKU-B"}, created)

	item, err := store.Items.FindByCode(ctx, "SKU-B")
	require.NoError(t, err)
	assert.Equal(t, "Silk", item.ItemName)

	created, err = svc.Ensure(ctx, lines)
	require.NoError(t, err)
	assert.Empty(t, created)

	_, err = svc.Ensure(ctx, []shopify.LineItem{{Name: "No sku"}})
	assert.True(t, errors.Is(err, ErrMissingSKU))
}
