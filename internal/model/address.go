package model

// AddressType 地址类型
const (
	AddressTypeBilling  = "Billing"
	AddressTypeShipping = "Shipping"
)

// Address ERP 地址
// 两种查找键并存：address_title（定时同步）与 email_id（Webhook 建单）
type Address struct {
	BaseModel
	AddressTitle string `gorm:"size:255;index" json:"address_title"`
	AddressType  string `gorm:"size:32" json:"address_type"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	AddressLine2 string `gorm:"size:255" json:"address_line2,omitempty"`
	City         string `gorm:"size:128" json:"city"`
	State        string `gorm:"size:128" json:"state"`
	Pincode      string `gorm:"size:32" json:"pincode"`
	Country      string `gorm:"size:128" json:"country"`
	EmailID      string `gorm:"size:255;index" json:"email_id,omitempty"`
	Phone        string `gorm:"size:64" json:"phone,omitempty"`
}

func (Address) TableName() string {
	return "addresses"
}
