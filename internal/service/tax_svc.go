package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"shopify_erp_sync/internal/config"
	"shopify_erp_sync/internal/model"
	"shopify_erp_sync/pkg/shopify"
)

// TaxStrategy 税费计算策略
type TaxStrategy int

const (
	// TaxStrategyFlat 按税务类别生成固定税率行（定时同步路径）
	TaxStrategyFlat TaxStrategy = iota
	// TaxStrategyPerLine 逐行读取 Shopify 税行（Webhook 路径）
	TaxStrategyPerLine
)

func (s TaxStrategy) String() string {
	switch s {
	case TaxStrategyFlat:
		return "flat"
	case TaxStrategyPerLine:
		return "per_line"
	default:
		return fmt.Sprintf("TaxStrategy(%d)", int(s))
	}
}

// GST 税种标题（与 Shopify tax_lines.title 一致）
const (
	GSTTitleIGST = "IGST"
	GSTTitleCGST = "CGST"
	GSTTitleSGST = "SGST"
)

var (
	rateFull = decimal.NewFromInt(5)
	rateHalf = decimal.NewFromFloat(2.5)
	hundred  = decimal.NewFromInt(100)
)

// TaxCategoryFor 账单地址所在邦等于注册地时为邦内，否则（含无账单地址）为跨邦
func TaxCategoryFor(order *shopify.Order, homeState string) string {
	province := shopify.BillingProvince(order)
	if province != "" && province == homeState {
		return model.TaxCategoryInState
	}
	return model.TaxCategoryOutState
}

// TaxPlan 订单的税务类别、模板与税费行
type TaxPlan struct {
	Category string
	Template string
	Taxes    []model.SalesOrderTax
}

// TaxPlanner 税费计算
type TaxPlanner struct {
	cfg config.ERPConfig
}

// NewTaxPlanner 创建税费计算器
func NewTaxPlanner(cfg config.ERPConfig) *TaxPlanner {
	return &TaxPlanner{cfg: cfg}
}

// Plan 按策略生成税费计划
// PerLine 策略要求 items 已经过 ApplyLineTaxes
func (p *TaxPlanner) Plan(strategy TaxStrategy, order *shopify.Order, items []model.SalesOrderItem) TaxPlan {
	switch strategy {
	case TaxStrategyPerLine:
		return TaxPlan{
			Category: p.cfg.WebhookTaxCategory,
			Template: p.cfg.WebhookTaxTemplate,
			Taxes:    p.perLineSchedule(items),
		}
	default:
		category := TaxCategoryFor(order, p.cfg.HomeState)
		return TaxPlan{
			Category: category,
			Taxes:    p.flatSchedule(category, order.TaxesIncluded),
		}
	}
}

// ==================== 固定税率 ====================

func (p *TaxPlanner) flatSchedule(category string, included bool) []model.SalesOrderTax {
	if category == model.TaxCategoryInState {
		return []model.SalesOrderTax{
			p.flatRow(1, p.cfg.CGSTAccount, GSTTitleCGST, rateHalf, included),
			p.flatRow(2, p.cfg.SGSTAccount, GSTTitleSGST, rateHalf, included),
		}
	}
	return []model.SalesOrderTax{
		p.flatRow(1, p.cfg.IGSTAccount, GSTTitleIGST, rateFull, included),
	}
}

func (p *TaxPlanner) flatRow(idx int, account, title string, rate decimal.Decimal, included bool) model.SalesOrderTax {
	return model.SalesOrderTax{
		Idx:                 idx,
		ChargeType:          model.ChargeTypeOnNetTotal,
		AccountHead:         account,
		CostCenter:          p.cfg.CostCenter,
		Rate:                rate,
		Description:         taxDescription(title, rate),
		IncludedInPrintRate: included,
	}
}

// ==================== 逐行税 ====================

// ApplyLineTaxes 把订单行的 IGST/CGST/SGST 金额与税率写入物料行，缺失的税种记 0
// 税率换算为百分比
func ApplyLineTaxes(item *model.SalesOrderItem, line *shopify.LineItem) {
	item.IGSTAmount, item.IGSTRate = lineTax(line, GSTTitleIGST)
	item.CGSTAmount, item.CGSTRate = lineTax(line, GSTTitleCGST)
	item.SGSTAmount, item.SGSTRate = lineTax(line, GSTTitleSGST)
}

// MergeLineTaxes 同一物料行合并了多条订单行时累加税额，税率保留首个非零值
func MergeLineTaxes(item *model.SalesOrderItem, line *shopify.LineItem) {
	item.IGSTAmount, item.IGSTRate = addLineTax(item.IGSTAmount, item.IGSTRate, line, GSTTitleIGST)
	item.CGSTAmount, item.CGSTRate = addLineTax(item.CGSTAmount, item.CGSTRate, line, GSTTitleCGST)
	item.SGSTAmount, item.SGSTRate = addLineTax(item.SGSTAmount, item.SGSTRate, line, GSTTitleSGST)
}

func addLineTax(amount, rate decimal.Decimal, line *shopify.LineItem, title string) (decimal.Decimal, decimal.Decimal) {
	a, r := lineTax(line, title)
	if rate.IsZero() {
		rate = r
	}
	return amount.Add(a), rate
}

func lineTax(line *shopify.LineItem, title string) (decimal.Decimal, decimal.Decimal) {
	tl, ok := shopify.FindTaxLine(line, title)
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	return shopify.Money(tl.Price), shopify.Money(tl.Rate).Mul(hundred)
}

// perLineSchedule 每个出现过的税种一行 Actual，金额为各行合计，税率取首个非零税率
func (p *TaxPlanner) perLineSchedule(items []model.SalesOrderItem) []model.SalesOrderTax {
	type component struct {
		title   string
		account string
		amount  func(*model.SalesOrderItem) (decimal.Decimal, decimal.Decimal)
	}
	components := []component{
		{GSTTitleIGST, p.cfg.IGSTAccount, func(it *model.SalesOrderItem) (decimal.Decimal, decimal.Decimal) { return it.IGSTAmount, it.IGSTRate }},
		{GSTTitleCGST, p.cfg.CGSTAccount, func(it *model.SalesOrderItem) (decimal.Decimal, decimal.Decimal) { return it.CGSTAmount, it.CGSTRate }},
		{GSTTitleSGST, p.cfg.SGSTAccount, func(it *model.SalesOrderItem) (decimal.Decimal, decimal.Decimal) { return it.SGSTAmount, it.SGSTRate }},
	}

	var taxes []model.SalesOrderTax
	for _, c := range components {
		total := decimal.Zero
		rate := decimal.Zero
		present := false
		for i := range items {
			amount, r := c.amount(&items[i])
			if amount.IsZero() && r.IsZero() {
				continue
			}
			present = true
			total = total.Add(amount)
			if rate.IsZero() {
				rate = r
			}
		}
		if !present {
			continue
		}
		taxes = append(taxes, model.SalesOrderTax{
			Idx:         len(taxes) + 1,
			ChargeType:  model.ChargeTypeActual,
			AccountHead: c.account,
			CostCenter:  p.cfg.CostCenter,
			Rate:        rate,
			TaxAmount:   total,
			Description: taxDescription(c.title, rate),
		})
	}
	return taxes
}

// taxDescription 例: IGST - 5.00%
func taxDescription(title string, rate decimal.Decimal) string {
	return fmt.Sprintf("%s - %s%%", title, rate.StringFixed(2))
}
