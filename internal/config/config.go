package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Shopify  ShopifyConfig
	ERP      ERPConfig
	Sync     SyncConfig
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string
	Env  string // development, production
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	DSN      string
	LogLevel string // silent, error, warn, info
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// ShopifyConfig Shopify 店铺连接配置
type ShopifyConfig struct {
	ShopURL       string // https://doeraa.myshopify.com
	APIVersion    string // 2021-04
	AccessToken   string
	WebhookSecret string // 为空时不校验 Webhook 签名
	Timeout       time.Duration
	ProxyURL      string // 出站代理，为空时直连
	Debug         bool   // 打印 Shopify 请求日志
}

// ERPConfig ERP 单据默认值
type ERPConfig struct {
	Company            string
	HomeState          string // 注册地所在邦，用于区分邦内/跨邦税
	Warehouse          string
	CostCenter         string
	DefaultUOM         string
	ShippingUOM        string
	ItemGroup          string
	CustomerGroup      string
	Territory          string
	IGSTAccount        string
	CGSTAccount        string
	SGSTAccount        string
	WebhookTaxCategory string
	WebhookTaxTemplate string
}

// SyncConfig 同步任务配置
type SyncConfig struct {
	Enabled         bool
	CronSpec        string // 带秒字段
	RecentLimit     int    // 定时同步每次拉取的订单数（仅第一页）
	BackfillLimit   int    // 全量回填每页条数
	BackfillSince   time.Time
	CutoffDate      time.Time // 早于该日期创建的订单不入账
	RunTimeout      time.Duration
	TriggerCooldown time.Duration // 手动触发冷却时间
}

// Load 加载配置：.env → 环境变量 → 默认值
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	backfillSince, err := time.Parse(time.RFC3339, v.GetString("sync.backfill_since"))
	if err != nil {
		return nil, fmt.Errorf("SYNC_BACKFILL_SINCE 格式错误: %w", err)
	}
	cutoff, err := time.Parse("2006-01-02", v.GetString("sync.cutoff_date"))
	if err != nil {
		return nil, fmt.Errorf("SYNC_CUTOFF_DATE 格式错误: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("server.port"),
			Env:  v.GetString("server.env"),
		},
		Database: DatabaseConfig{
			DSN:      v.GetString("database.dsn"),
			LogLevel: v.GetString("database.log_level"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Shopify: ShopifyConfig{
			ShopURL:       strings.TrimRight(v.GetString("shopify.shop_url"), "/"),
			APIVersion:    v.GetString("shopify.api_version"),
			AccessToken:   v.GetString("shopify.access_token"),
			WebhookSecret: v.GetString("shopify.webhook_secret"),
			Timeout:       v.GetDuration("shopify.timeout"),
			ProxyURL:      v.GetString("shopify.proxy_url"),
			Debug:         v.GetBool("shopify.debug"),
		},
		ERP: ERPConfig{
			Company:            v.GetString("erp.company"),
			HomeState:          strings.TrimSpace(v.GetString("erp.home_state")),
			Warehouse:          v.GetString("erp.warehouse"),
			CostCenter:         v.GetString("erp.cost_center"),
			DefaultUOM:         v.GetString("erp.default_uom"),
			ShippingUOM:        v.GetString("erp.shipping_uom"),
			ItemGroup:          v.GetString("erp.item_group"),
			CustomerGroup:      v.GetString("erp.customer_group"),
			Territory:          v.GetString("erp.territory"),
			IGSTAccount:        v.GetString("erp.igst_account"),
			CGSTAccount:        v.GetString("erp.cgst_account"),
			SGSTAccount:        v.GetString("erp.sgst_account"),
			WebhookTaxCategory: v.GetString("erp.webhook_tax_category"),
			WebhookTaxTemplate: v.GetString("erp.webhook_tax_template"),
		},
		Sync: SyncConfig{
			Enabled:         v.GetBool("sync.enabled"),
			CronSpec:        v.GetString("sync.cron_spec"),
			RecentLimit:     v.GetInt("sync.recent_limit"),
			BackfillLimit:   v.GetInt("sync.backfill_limit"),
			BackfillSince:   backfillSince,
			CutoffDate:      cutoff,
			RunTimeout:      v.GetDuration("sync.run_timeout"),
			TriggerCooldown: v.GetDuration("sync.trigger_cooldown"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验必填项
func (c *Config) Validate() error {
	if c.Shopify.ShopURL == "" {
		return fmt.Errorf("SHOPIFY_SHOP_URL 未配置")
	}
	if c.ERP.HomeState == "" {
		return fmt.Errorf("ERP_HOME_STATE 未配置")
	}
	if c.Sync.RecentLimit <= 0 || c.Sync.RecentLimit > 250 {
		return fmt.Errorf("SYNC_RECENT_LIMIT 必须在 1-250 之间")
	}
	if c.Sync.BackfillLimit <= 0 || c.Sync.BackfillLimit > 250 {
		return fmt.Errorf("SYNC_BACKFILL_LIMIT 必须在 1-250 之间")
	}
	return nil
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")

	v.SetDefault("database.dsn", "host=localhost user=erp password=erp dbname=erp port=5432 sslmode=disable")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("shopify.shop_url", "https://doeraa.myshopify.com")
	v.SetDefault("shopify.api_version", "2021-04")
	v.SetDefault("shopify.access_token", "")
	v.SetDefault("shopify.webhook_secret", "")
	v.SetDefault("shopify.timeout", 30*time.Second)
	v.SetDefault("shopify.proxy_url", "")
	v.SetDefault("shopify.debug", false)

	v.SetDefault("erp.company", "Doeraa Private Limited")
	v.SetDefault("erp.home_state", "Gujarat")
	v.SetDefault("erp.warehouse", "Finished Goods - DPL")
	v.SetDefault("erp.cost_center", "Main - DPL")
	v.SetDefault("erp.default_uom", "Meter")
	v.SetDefault("erp.shipping_uom", "Nos")
	v.SetDefault("erp.item_group", "Products")
	v.SetDefault("erp.customer_group", "Shopify")
	v.SetDefault("erp.territory", "All Territories")
	v.SetDefault("erp.igst_account", "Output Tax IGST - DPL")
	v.SetDefault("erp.cgst_account", "Output Tax CGST - DPL")
	v.SetDefault("erp.sgst_account", "Output Tax SGST - DPL")
	v.SetDefault("erp.webhook_tax_category", "Ecommerce Integrations - Ignore")
	v.SetDefault("erp.webhook_tax_template", "Output GST Out-state - DPL")

	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.cron_spec", "0 */5 * * * *")
	v.SetDefault("sync.recent_limit", 10)
	v.SetDefault("sync.backfill_limit", 250)
	v.SetDefault("sync.backfill_since", "2023-04-01T00:00:00Z")
	v.SetDefault("sync.cutoff_date", "2021-04-01")
	v.SetDefault("sync.run_timeout", 10*time.Minute)
	v.SetDefault("sync.trigger_cooldown", 30*time.Second)
}
