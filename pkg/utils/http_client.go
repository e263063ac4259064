package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent 默认 UA
const DefaultUserAgent = "Shopify-ERP-Sync/1.0"

// ClientOptions Resty 客户端选项
type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	ProxyURL  string // 为空时直连
}

// NewRestyClient 创建一个配置好超时、UA 和代理的 Resty 客户端
// 它是全系统统一的出站请求入口
func NewRestyClient(opts ClientOptions) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent)

	if opts.ProxyURL != "" {
		client.SetProxy(opts.ProxyURL)
	}

	return client
}
