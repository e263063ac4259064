package dto

import "time"

// ==================== 同步结果 ====================

// 触发来源
const (
	TriggerCron    = "cron"
	TriggerManual  = "manual"
	TriggerWebhook = "webhook"
)

// SyncResult 一次订单同步的结果
type SyncResult struct {
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	Fetched    int       `json:"fetched"`
	Created    []string  `json:"created"` // 新建的销售订单单号
	Skipped    int       `json:"skipped"` // 已同步 / 早于截止日 / 无客户
	Errors     []string  `json:"errors,omitempty"`
	FetchError string    `json:"fetch_error,omitempty"` // 拉取中断时的错误，Created 基于部分结果
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// CreatedCount 新建数量
func (r *SyncResult) CreatedCount() int {
	return len(r.Created)
}

// SyncByIDsRequest 按 Shopify 订单 ID 同步
type SyncByIDsRequest struct {
	OrderIDs []int64 `json:"order_ids" binding:"required,min=1,max=250"`
}

// ==================== 回填结果 ====================

// BackfillResult 运费 / 折扣回填、重复物料清理的结果
type BackfillResult struct {
	RunID   string   `json:"run_id"`
	Scanned int      `json:"scanned"`
	Updated []string `json:"updated"` // 被修改的销售订单单号
	Values  []string `json:"values,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ==================== Shopify 查询 ====================

// OrderTaxesResponse 订单税行查询
type OrderTaxesResponse struct {
	OrderID       int64         `json:"order_id"`
	TaxLines      []TaxLineVO   `json:"tax_lines"`
	TaxesIncluded bool          `json:"taxes_included"`
	LineItems     []LineTaxesVO `json:"line_items,omitempty"`
}

// TaxLineVO 税行
type TaxLineVO struct {
	Title string `json:"title"`
	Price string `json:"price"`
	Rate  string `json:"rate"`
}

// LineTaxesVO 订单行税
type LineTaxesVO struct {
	SKU      string      `json:"sku"`
	TaxLines []TaxLineVO `json:"tax_lines"`
}
