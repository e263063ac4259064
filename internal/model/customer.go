package model

// CustomerTypeIndividual 客户类型：个人（Shopify 买家均按个人建档）
const CustomerTypeIndividual = "Individual"

// Customer ERP 客户
// customer_name 即客户的业务主键（Shopify 买家姓名拼接而来）
type Customer struct {
	BaseModel
	CustomerName  string `gorm:"size:255;uniqueIndex;not null" json:"customer_name"`
	CustomerType  string `gorm:"size:32" json:"customer_type"`
	CustomerGroup string `gorm:"size:64" json:"customer_group"`
	Territory     string `gorm:"size:64" json:"territory"`
}

func (Customer) TableName() string {
	return "customers"
}
