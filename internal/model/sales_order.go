package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ==================== 单据常量 ====================

// DocStatus 单据状态
const (
	DocStatusDraft     = 0 // 草稿
	DocStatusSubmitted = 1 // 已提交
)

// TaxCategory 税务类别
const (
	TaxCategoryInState  = "In-state"  // 邦内：CGST + SGST
	TaxCategoryOutState = "Out-state" // 跨邦：IGST
)

// ChargeType 税费计算方式
const (
	ChargeTypeOnNetTotal = "On Net Total"
	ChargeTypeActual     = "Actual"
)

const (
	OrderTypeSales            = "Sales"
	ApplyDiscountOnGrandTotal = "Grand Total"
	GSTTreatmentTaxable       = "Taxable"
	ShippingItemCode          = "SHIPPING CHARGES"
)

// ==================== SalesOrder 销售订单 ====================

// SalesOrder 销售订单
type SalesOrder struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:64;index" json:"name"`

	// Shopify 关联（shopify_order_id 为幂等键）
	ShopifyOrderID     int64  `gorm:"uniqueIndex;not null" json:"shopify_order_id"`
	ShopifyOrderNumber string `gorm:"size:32" json:"shopify_order_number"`

	Company           string `gorm:"size:128" json:"company"`
	Customer          string `gorm:"size:255;index" json:"customer"`
	CustomerAddressID *int64 `json:"customer_address_id,omitempty"`
	OrderType         string `gorm:"size:32" json:"order_type"`
	Currency          string `gorm:"size:10" json:"currency,omitempty"`

	// 税
	TaxCategory     string `gorm:"size:64" json:"tax_category"`
	TaxesAndCharges string `gorm:"size:128" json:"taxes_and_charges,omitempty"`

	DeliveryDate    time.Time `json:"delivery_date"`
	TransactionDate time.Time `json:"transaction_date"`

	// 折扣
	ApplyDiscountOn string          `gorm:"size:32" json:"apply_discount_on,omitempty"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,2)" json:"discount_amount"`

	DocStatus int `gorm:"default:0;index" json:"docstatus"`

	// Shopify 原始数据
	ShopifyRawData datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 子表
	Items []SalesOrderItem `gorm:"foreignKey:SalesOrderID;constraint:OnDelete:CASCADE" json:"items"`
	Taxes []SalesOrderTax  `gorm:"foreignKey:SalesOrderID;constraint:OnDelete:CASCADE" json:"taxes"`
}

func (*SalesOrder) TableName() string {
	return "sales_orders"
}

// AfterCreate 按 SAL-ORD-<年>-<序号> 生成单号
func (o *SalesOrder) AfterCreate(tx *gorm.DB) error {
	if o.Name != "" {
		return nil
	}
	o.Name = FormatSalesOrderName(o.CreatedAt, o.ID)
	return tx.Model(&SalesOrder{}).Where("id = ?", o.ID).UpdateColumn("name", o.Name).Error
}

// FormatSalesOrderName 生成销售订单单号
func FormatSalesOrderName(createdAt time.Time, id int64) string {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return fmt.Sprintf("SAL-ORD-%d-%05d", createdAt.Year(), id)
}

// IsDraft 是否草稿
func (o *SalesOrder) IsDraft() bool {
	return o.DocStatus == DocStatusDraft
}

// HasItem 是否已包含指定物料行
func (o *SalesOrder) HasItem(itemCode string) bool {
	for _, it := range o.Items {
		if it.ItemCode == itemCode {
			return true
		}
	}
	return false
}

// NextItemIdx 下一物料行序号
func (o *SalesOrder) NextItemIdx() int {
	next := 1
	for _, it := range o.Items {
		if it.Idx >= next {
			next = it.Idx + 1
		}
	}
	return next
}

// NetTotal 物料行合计（rate * qty）
func (o *SalesOrder) NetTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Amount())
	}
	return total
}

// ==================== SalesOrderItem 订单物料行 ====================

// SalesOrderItem 销售订单物料行
type SalesOrderItem struct {
	ID           int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SalesOrderID int64 `gorm:"index;not null" json:"-"`
	Idx          int   `json:"idx"`

	ItemCode     string          `gorm:"size:140;index" json:"item_code"`
	ItemName     string          `gorm:"size:140" json:"item_name"`
	Rate         decimal.Decimal `gorm:"type:decimal(18,2)" json:"rate"`
	Qty          int             `json:"qty"`
	Warehouse    string          `gorm:"size:128" json:"warehouse"`
	DeliveryDate time.Time       `json:"delivery_date"`
	UOM          string          `gorm:"size:32" json:"uom"`
	GSTTreatment string          `gorm:"size:32" json:"gst_treatment,omitempty"`

	// 逐行税额（仅 Webhook 建单路径填充）
	IGSTAmount decimal.Decimal `gorm:"type:decimal(18,2)" json:"igst_amount"`
	IGSTRate   decimal.Decimal `gorm:"type:decimal(18,6)" json:"igst_rate"`
	CGSTAmount decimal.Decimal `gorm:"type:decimal(18,2)" json:"cgst_amount"`
	CGSTRate   decimal.Decimal `gorm:"type:decimal(18,6)" json:"cgst_rate"`
	SGSTAmount decimal.Decimal `gorm:"type:decimal(18,2)" json:"sgst_amount"`
	SGSTRate   decimal.Decimal `gorm:"type:decimal(18,6)" json:"sgst_rate"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (*SalesOrderItem) TableName() string {
	return "sales_order_items"
}

// Amount 行金额
func (i *SalesOrderItem) Amount() decimal.Decimal {
	return i.Rate.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// ==================== SalesOrderTax 税费行 ====================

// SalesOrderTax 销售订单税费行
type SalesOrderTax struct {
	ID           int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SalesOrderID int64 `gorm:"index;not null" json:"-"`
	Idx          int   `json:"idx"`

	ChargeType          string          `gorm:"size:32" json:"charge_type"`
	AccountHead         string          `gorm:"size:128" json:"account_head"`
	CostCenter          string          `gorm:"size:128" json:"cost_center"`
	Rate                decimal.Decimal `gorm:"type:decimal(18,6)" json:"rate"`
	TaxAmount           decimal.Decimal `gorm:"type:decimal(18,2)" json:"tax_amount"`
	Description         string          `gorm:"size:255" json:"description"`
	IncludedInPrintRate bool            `json:"included_in_print_rate"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (*SalesOrderTax) TableName() string {
	return "sales_order_taxes"
}
