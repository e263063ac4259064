package shopify

import (
	"strings"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/shopspring/decimal"
)

// ==========================================
// Shopify Admin REST 订单结构直接使用 go-shopify 的类型
// 金额字段为 *decimal.Decimal，缺省时为 nil
// ==========================================

type (
	Order           = goshopify.Order
	Customer        = goshopify.Customer
	CustomerAddress = goshopify.CustomerAddress
	Address         = goshopify.Address
	LineItem        = goshopify.LineItem
	TaxLine         = goshopify.TaxLine
	DiscountCode    = goshopify.DiscountCode
	ShippingLine    = goshopify.ShippingLines
	App             = goshopify.App
)

// Money 金额指针转值，nil 视为 0
func Money(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// ==================== 订单 ====================

// OrderID 订单 ID（ERP 侧以 int64 存储）
func OrderID(o *Order) int64 {
	return int64(o.Id)
}

// CreatedAt 订单创建时间，缺失时为零值
func CreatedAt(o *Order) time.Time {
	if o.CreatedAt == nil {
		return time.Time{}
	}
	return *o.CreatedAt
}

// BillingProvince 账单地址所在邦，无账单地址时返回空
func BillingProvince(o *Order) string {
	if o.BillingAddress == nil {
		return ""
	}
	return strings.TrimSpace(o.BillingAddress.Province)
}

// FirstShippingPrice 第一条运费行金额
func FirstShippingPrice(o *Order) (decimal.Decimal, bool) {
	if len(o.ShippingLines) == 0 {
		return decimal.Zero, false
	}
	return Money(o.ShippingLines[0].Price), true
}

// FirstDiscountAmount 第一个折扣码金额
func FirstDiscountAmount(o *Order) (decimal.Decimal, bool) {
	if len(o.DiscountCodes) == 0 {
		return decimal.Zero, false
	}
	return Money(o.DiscountCodes[0].Amount), true
}

// ==================== 订单行 ====================

// LineItemName 行商品名称，name 为空时回退 title
func LineItemName(li *LineItem) string {
	if li.Name != "" {
		return li.Name
	}
	return li.Title
}

// FindTaxLine 按标题（IGST/CGST/SGST）查找行税
func FindTaxLine(li *LineItem, title string) (TaxLine, bool) {
	for _, tl := range li.TaxLines {
		if tl.Title == title {
			return tl, true
		}
	}
	return TaxLine{}, false
}
