package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== SyncRateLimiter 同步限流器 ====================

// SyncRateLimiter 手动同步限流器
// 防止频繁触发手动同步导致 Shopify API 限流
type SyncRateLimiter struct {
	locks sync.Map // key -> *lockEntry
	now   func() time.Time
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewSyncRateLimiter 创建限流器
func NewSyncRateLimiter() *SyncRateLimiter {
	return &SyncRateLimiter{now: time.Now}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// CheckOnly 仅检查，不更新时间
// 执行成功后由调用方 MarkExecuted 开始冷却
func (r *SyncRateLimiter) CheckOnly(key string, interval time.Duration) CheckResult {
	actual, ok := r.locks.Load(key)
	if !ok {
		return CheckResult{Allowed: true}
	}

	entry := actual.(*lockEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	elapsed := r.now().Sub(entry.lastTime)
	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}
	return CheckResult{Allowed: true}
}

// MarkExecuted 标记已执行
func (r *SyncRateLimiter) MarkExecuted(key string) {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lastTime = r.now()
}

// ==================== Key 生成工具 ====================

// SyncType 手动同步类型
type SyncType string

const (
	SyncTypeRecent          SyncType = "sync_recent"
	SyncTypeBackfill        SyncType = "backfill"
	SyncTypeByIDs           SyncType = "sync_by_ids"
	SyncTypeShippingCharges SyncType = "shipping_charges"
	SyncTypeDiscounts       SyncType = "discounts"
	SyncTypeRemoveDups      SyncType = "remove_duplicates"
)

// SyncKey 生成同步限流 Key
func SyncKey(syncType SyncType) string {
	return fmt.Sprintf("sync:%s", syncType)
}
