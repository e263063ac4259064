package dto

import "time"

// ListSalesOrdersRequest 销售订单列表请求
type ListSalesOrdersRequest struct {
	Customer  string `form:"customer"`
	DocStatus *int   `form:"docstatus"`  // 0 草稿 1 已提交
	StartDate string `form:"start_date"` // 2024-01-01
	EndDate   string `form:"end_date"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
}

// ListSalesOrdersResponse 销售订单列表响应
type ListSalesOrdersResponse struct {
	Total int64              `json:"total"`
	List  []SalesOrderListVO `json:"list"`
}

// SalesOrderListVO 销售订单列表项
type SalesOrderListVO struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	ShopifyOrderID     int64     `json:"shopify_order_id"`
	ShopifyOrderNumber string    `json:"shopify_order_number"`
	Customer           string    `json:"customer"`
	TaxCategory        string    `json:"tax_category"`
	ItemCount          int       `json:"item_count"`
	NetTotal           string    `json:"net_total"`
	DiscountAmount     string    `json:"discount_amount"`
	DocStatus          int       `json:"docstatus"`
	TransactionDate    time.Time `json:"transaction_date"`
	CreatedAt          time.Time `json:"created_at"`
}
