package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify_erp_sync/internal/api/dto"
	"shopify_erp_sync/internal/config"
	"shopify_erp_sync/pkg/shopify"
)

// fakeFetcher 内存中的 Shopify 订单源
type fakeFetcher struct {
	orders    []shopify.Order
	listErr   error
	lastQuery shopify.OrderQuery
	firstPage bool
}

func (f *fakeFetcher) ListOrders(_ context.Context, q shopify.OrderQuery) ([]shopify.Order, error) {
	f.lastQuery = q
	return f.orders, f.listErr
}

func (f *fakeFetcher) ListOrdersFirstPage(_ context.Context, q shopify.OrderQuery) ([]shopify.Order, error) {
	f.lastQuery = q
	f.firstPage = true
	if q.Limit > 0 && q.Limit < len(f.orders) {
		return f.orders[:q.Limit], f.listErr
	}
	return f.orders, f.listErr
}

func (f *fakeFetcher) GetOrder(_ context.Context, id int64) (*shopify.Order, error) {
	for i := range f.orders {
		if shopify.OrderID(&f.orders[i]) == id {
			o := f.orders[i]
			return &o, nil
		}
	}
	return nil, shopify.ErrUnexpectedStatus
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		RecentLimit:   10,
		BackfillLimit: 250,
		BackfillSince: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		CutoffDate:    testCutoff,
	}
}

func newTestSyncService(t *testing.T, f *fakeFetcher) *SyncService {
	orders, _ := newTestSalesOrderService(t)
	return NewSyncService(f, orders, testSyncConfig(), nil)
}

func TestSyncRecent_FirstPageOnly(t *testing.T) {
	f := &fakeFetcher{}
	for i := int64(1); i <= 12; i++ {
		f.orders = append(f.orders, newOrder(i, "Gujarat", "SKU-A"))
	}
	svc := newTestSyncService(t, f)

	result := svc.SyncRecent(context.Background(), dto.TriggerCron)

	assert.True(t, f.firstPage)
	assert.Equal(t, 10, f.lastQuery.Limit)
	assert.Nil(t, f.lastQuery.CreatedAtMin)
	assert.Equal(t, 10, result.Fetched)
	assert.Len(t, result.Created, 10)
	assert.Equal(t, dto.TriggerCron, result.Trigger)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestBackfill_UsesCreatedAtMin(t *testing.T) {
	f := &fakeFetcher{orders: []shopify.Order{newOrder(1, "Gujarat", "SKU-A")}}
	svc := newTestSyncService(t, f)

	result := svc.Backfill(context.Background(), dto.TriggerManual)

	require.NotNil(t, f.lastQuery.CreatedAtMin)
	assert.Equal(t, "2023-04-01T00:00:00Z", f.lastQuery.CreatedAtMin.Format(time.RFC3339))
	assert.Equal(t, 250, f.lastQuery.Limit)
	assert.Len(t, result.Created, 1)
}

func TestSync_ProcessesPartialFetch(t *testing.T) {
	f := &fakeFetcher{
		orders:  []shopify.Order{newOrder(1, "Gujarat", "SKU-A"), newOrder(2, "Delhi", "SKU-B")},
		listErr: errors.New("HTTP 502"),
	}
	svc := newTestSyncService(t, f)

	result := svc.Backfill(context.Background(), dto.TriggerManual)

	assert.Contains(t, result.FetchError, "502")
	assert.Len(t, result.Created, 2, "拉取中断时已拉取的订单仍需建单")
}

func TestSyncByIDs(t *testing.T) {
	f := &fakeFetcher{orders: []shopify.Order{newOrder(7, "Gujarat", "SKU-A")}}
	svc := newTestSyncService(t, f)

	result := svc.SyncByIDs(context.Background(), []int64{7, 8})

	assert.Equal(t, 1, result.Fetched)
	assert.Len(t, result.Created, 1)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "8")
}

func TestLookupOrderTaxes(t *testing.T) {
	order := newOrder(5, "Gujarat", "SKU-A")
	order.TaxesIncluded = true
	order.TaxLines = []shopify.TaxLine{{Title: "IGST", Price: money("23.8"), Rate: money("0.05")}}
	order.LineItems[0].TaxLines = order.TaxLines
	svc := newTestSyncService(t, &fakeFetcher{orders: []shopify.Order{order}})

	resp, err := svc.LookupOrderTaxes(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, resp.TaxesIncluded)
	require.Len(t, resp.TaxLines, 1)
	assert.Equal(t, "23.80", resp.TaxLines[0].Price)
	assert.Equal(t, "0.05", resp.TaxLines[0].Rate)
	require.Len(t, resp.LineItems, 1)
	assert.Equal(t, "SKU-A", resp.LineItems[0].SKU)

	_, err = svc.LookupOrder(context.Background(), 404)
	assert.ErrorIs(t, err, shopify.ErrUnexpectedStatus)
}

func TestSyncService_Backfills(t *testing.T) {
	order := newOrder(1, "Gujarat", "SKU-A")
	f := &fakeFetcher{orders: []shopify.Order{order}}
	svc := newTestSyncService(t, f)
	ctx := context.Background()

	require.Len(t, svc.SyncRecent(ctx, dto.TriggerManual).Created, 1)

	f.orders[0].ShippingLines = []shopify.ShippingLine{{Price: money("40")}}
	f.orders[0].DiscountCodes = []shopify.DiscountCode{{Amount: money("15.5")}}

	shipping := svc.BackfillShippingCharges(ctx)
	assert.Len(t, shipping.Updated, 1)
	assert.Equal(t, 250, f.lastQuery.Limit)
	assert.Nil(t, f.lastQuery.CreatedAtMin)

	discounts := svc.BackfillDiscounts(ctx)
	assert.Len(t, discounts.Updated, 1)
	assert.Equal(t, []string{"15"}, discounts.Values)

	dups, err := svc.RemoveDuplicateItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dups.Scanned)
	assert.Empty(t, dups.Updated)
}
