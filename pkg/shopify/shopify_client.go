package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"go.uber.org/zap"

	"shopify_erp_sync/pkg/utils"
)

// HeaderAccessToken Shopify Admin API 鉴权头
const HeaderAccessToken = "X-Shopify-Access-Token"

// ErrUnexpectedStatus Shopify 返回非 2xx
var ErrUnexpectedStatus = errors.New("shopify: unexpected status")

// Config Shopify 客户端配置，进程启动时构建后显式传入
type Config struct {
	ShopURL     string // https://doeraa.myshopify.com
	APIVersion  string // 2021-04
	AccessToken string
	Timeout     time.Duration
	ProxyURL    string // 出站代理，为空时直连
	Debug       bool   // 打印请求与响应
}

// ShopName go-shopify 使用的店铺域名（去掉协议与末尾斜杠）
func (c Config) ShopName() string {
	name := strings.TrimSpace(c.ShopURL)
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")
	return strings.TrimRight(name, "/")
}

// OrderQuery 订单列表查询条件
type OrderQuery struct {
	Limit        int        // 每页条数，Shopify 上限 250
	Status       string     // any / open / closed，为空时使用 Shopify 默认值
	CreatedAtMin *time.Time // 最早创建时间
	MaxPages     int        // 最多翻页数，0 表示不限
}

func (q OrderQuery) options() *goshopify.OrderListOptions {
	opts := &goshopify.OrderListOptions{
		ListOptions: goshopify.ListOptions{Limit: q.Limit},
		Status:      goshopify.OrderStatus(q.Status),
	}
	if q.CreatedAtMin != nil {
		opts.ListOptions.CreatedAtMin = q.CreatedAtMin.UTC()
	}
	return opts
}

// Client Shopify 订单客户端
type Client struct {
	api *goshopify.Client
	log *zap.Logger
}

// NewClient 创建 Shopify 客户端，出站 HTTP 由统一的 Resty 客户端承载
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	httpClient := utils.NewRestyClient(utils.ClientOptions{
		Timeout:  cfg.Timeout,
		ProxyURL: cfg.ProxyURL,
	}).GetClient()
	return newClient(cfg, httpClient, log)
}

func newClient(cfg Config, httpClient *http.Client, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts := []goshopify.Option{
		goshopify.WithVersion(cfg.APIVersion),
		goshopify.WithHTTPClient(httpClient),
	}
	if cfg.Debug {
		opts = append(opts, goshopify.WithLogger(log.Named("shopify").Sugar()))
	}

	api, err := goshopify.NewClient(goshopify.App{}, cfg.ShopName(), cfg.AccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建 Shopify 客户端失败: %w", err)
	}
	return &Client{api: api, log: log}, nil
}

// ==================== 订单列表 ====================

// ListOrders 按 Link 头游标翻页拉取订单
// 任一页失败即停止翻页，返回已累积的订单以及该错误，不重试
func (c *Client) ListOrders(ctx context.Context, q OrderQuery) ([]Order, error) {
	var orders []Order

	// 后续页只携带 page_info 与 limit，Shopify 不允许与原始过滤参数同时出现
	var options interface{} = q.options()
	pages := 0

	for {
		page, pagination, err := c.api.Order.ListWithPagination(ctx, options)
		if err != nil {
			err = wrapError(err)
			c.log.Warn("[ShopifyClient] 拉取订单失败，停止翻页",
				zap.Int("pages", pages),
				zap.Int("accumulated", len(orders)),
				zap.Error(err))
			return orders, err
		}

		orders = append(orders, page...)
		pages++

		if q.MaxPages > 0 && pages >= q.MaxPages {
			break
		}
		if pagination == nil || pagination.NextPageOptions == nil {
			break
		}
		options = pagination.NextPageOptions
	}

	c.log.Debug("[ShopifyClient] 订单拉取完成", zap.Int("pages", pages), zap.Int("orders", len(orders)))
	return orders, nil
}

// ListOrdersFirstPage 只拉取第一页（定时同步使用，牺牲完整性换取低延迟）
func (c *Client) ListOrdersFirstPage(ctx context.Context, q OrderQuery) ([]Order, error) {
	q.MaxPages = 1
	return c.ListOrders(ctx, q)
}

// ==================== 单个订单 ====================

// GetOrder 按 Shopify 订单 ID 获取订单
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	order, err := c.api.Order.Get(ctx, uint64(orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("获取 Shopify 订单 %d 失败: %w", orderID, wrapError(err))
	}
	if order == nil || order.Id == 0 {
		return nil, fmt.Errorf("订单 %d 响应为空", orderID)
	}
	return order, nil
}

// wrapError 非 2xx 响应统一包装为 ErrUnexpectedStatus，网络错误原样返回
func wrapError(err error) error {
	var respErr goshopify.ResponseError
	var rateErr goshopify.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		return fmt.Errorf("%w: HTTP %d: %v", ErrUnexpectedStatus, rateErr.Status, err)
	case errors.As(err, &respErr):
		return fmt.Errorf("%w: HTTP %d: %v", ErrUnexpectedStatus, respErr.Status, err)
	default:
		return err
	}
}
