package model

// ItemNameMaxLen 物料名称最大长度（按字符计）
const ItemNameMaxLen = 140

// Item ERP 物料，item_code 即 Shopify SKU
type Item struct {
	BaseModel
	ItemCode  string `gorm:"size:140;uniqueIndex;not null" json:"item_code"`
	ItemName  string `gorm:"size:140" json:"item_name"`
	ItemGroup string `gorm:"size:64" json:"item_group"`
	StockUOM  string `gorm:"size:32" json:"stock_uom"`
}

func (Item) TableName() string {
	return "items"
}

// TruncateItemName 按字符截断物料名称
func TruncateItemName(name string) string {
	r := []rune(name)
	if len(r) <= ItemNameMaxLen {
		return name
	}
	return string(r[:ItemNameMaxLen])
}
