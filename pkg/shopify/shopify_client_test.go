package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redirectTransport 把发往店铺域名的请求转到 httptest 服务
type redirectTransport struct {
	target *url.URL
}

func (t redirectTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

// newTestClient 指向 httptest 服务的客户端
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c, err := newClient(Config{
		ShopURL:     "https://test-shop.myshopify.com/",
		APIVersion:  "2021-04",
		AccessToken: "shpat_test",
	}, &http.Client{Timeout: 5 * time.Second, Transport: redirectTransport{target: target}}, nil)
	require.NoError(t, err)
	return c
}

// pagedHandler 返回 pages 页，每页一个订单，第 failAt 页返回 500（0 表示不失败）
func pagedHandler(t *testing.T, pages, failAt int, hits *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(hits, 1))
		assert.Equal(t, "shpat_test", r.Header.Get(HeaderAccessToken))
		assert.Equal(t, "/admin/api/2021-04/orders.json", r.URL.Path)

		if n == failAt {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"errors":"boom"}`))
			return
		}
		if n < pages {
			next := fmt.Sprintf("https://test-shop.myshopify.com/admin/api/2021-04/orders.json?limit=1&page_info=p%d", n+1)
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"orders":[{"id":%d,"name":"#%d","total_price":"100.00"}]}`, 1000+n, 1000+n)
	}
}

func TestConfig_ShopName(t *testing.T) {
	assert.Equal(t, "doeraa.myshopify.com", Config{ShopURL: "https://doeraa.myshopify.com/"}.ShopName())
	assert.Equal(t, "doeraa.myshopify.com", Config{ShopURL: "http://doeraa.myshopify.com"}.ShopName())
	assert.Equal(t, "doeraa.myshopify.com", Config{ShopURL: " doeraa.myshopify.com "}.ShopName())
}

func TestListOrders_FollowsLinkUntilExhausted(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(pagedHandler(t, 3, 0, &hits))
	defer srv.Close()

	orders, err := newTestClient(t, srv).ListOrders(context.Background(), OrderQuery{Limit: 1})
	require.NoError(t, err)

	assert.Len(t, orders, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, int64(1001), OrderID(&orders[0]))
	assert.Equal(t, int64(1003), OrderID(&orders[2]))
	assert.Equal(t, "100", Money(orders[0].TotalPrice).String())
}

func TestListOrders_ReturnsPartialOnPageError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(pagedHandler(t, 5, 3, &hits))
	defer srv.Close()

	orders, err := newTestClient(t, srv).ListOrders(context.Background(), OrderQuery{Limit: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))

	// 前两页已累积，第三页失败后不再请求
	assert.Len(t, orders, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestListOrders_MaxPages(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(pagedHandler(t, 5, 0, &hits))
	defer srv.Close()

	orders, err := newTestClient(t, srv).ListOrders(context.Background(), OrderQuery{Limit: 1, MaxPages: 2})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestListOrdersFirstPage_IgnoresNextLink(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(pagedHandler(t, 3, 0, &hits))
	defer srv.Close()

	orders, err := newTestClient(t, srv).ListOrdersFirstPage(context.Background(), OrderQuery{Limit: 10})
	require.NoError(t, err)

	assert.Len(t, orders, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestListOrders_QueryParams(t *testing.T) {
	since := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "250", q.Get("limit"))
		assert.Equal(t, "2023-04-01T00:00:00Z", q.Get("created_at_min"))
		assert.Equal(t, "", q.Get("status"))
		_, _ = w.Write([]byte(`{"orders":[]}`))
	}))
	defer srv.Close()

	orders, err := newTestClient(t, srv).ListOrders(context.Background(), OrderQuery{Limit: 250, CreatedAtMin: &since})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestListOrders_NextPageDropsOriginalParams(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n == 1 {
			assert.Equal(t, "any", r.URL.Query().Get("status"))
			w.Header().Set("Link", `<https://test-shop.myshopify.com/admin/api/2021-04/orders.json?page_info=abc>; rel="next"`)
		} else {
			// Shopify 禁止 page_info 与其它过滤参数同时出现
			assert.Equal(t, "", r.URL.Query().Get("status"))
			assert.Equal(t, "abc", r.URL.Query().Get("page_info"))
		}
		_, _ = w.Write([]byte(`{"orders":[{"id":1}]}`))
	}))
	defer srv.Close()

	orders, err := newTestClient(t, srv).ListOrders(context.Background(), OrderQuery{Status: "any"})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestGetOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/api/2021-04/orders/4242.json" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":"Not Found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"order":{
			"id":4242,"name":"#1042","taxes_included":true,
			"created_at":"2024-03-05T10:00:00Z",
			"customer":{"first_name":"Asha","last_name":"Patel"},
			"billing_address":{"province":"Gujarat"},
			"line_items":[{"sku":"SKU-1","name":"Cotton","quantity":2,"price":"250.00",
				"tax_lines":[{"title":"IGST","price":"23.81","rate":0.05}]}],
			"shipping_lines":[{"price":"50.00"}],
			"discount_codes":[{"code":"X","amount":"99.90"}]
		}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	order, err := c.GetOrder(context.Background(), 4242)
	require.NoError(t, err)
	assert.Equal(t, "#1042", order.Name)
	assert.True(t, order.TaxesIncluded)
	assert.Equal(t, "Gujarat", BillingProvince(order))
	assert.Equal(t, 2024, CreatedAt(order).Year())

	tl, ok := FindTaxLine(&order.LineItems[0], "IGST")
	require.True(t, ok)
	assert.Equal(t, "0.05", Money(tl.Rate).String())

	ship, ok := FirstShippingPrice(order)
	require.True(t, ok)
	assert.Equal(t, "50", ship.String())

	discount, ok := FirstDiscountAmount(order)
	require.True(t, ok)
	assert.Equal(t, "99.9", discount.String())

	_, err = c.GetOrder(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestOrderHelpers_EmptyOrder(t *testing.T) {
	o := &Order{}
	assert.Equal(t, "", BillingProvince(o))
	assert.True(t, CreatedAt(o).IsZero())

	_, ok := FirstShippingPrice(o)
	assert.False(t, ok)
	_, ok = FirstDiscountAmount(o)
	assert.False(t, ok)

	assert.Equal(t, "Silk", LineItemName(&LineItem{Title: "Silk"}))
	assert.True(t, Money(nil).IsZero())
}
