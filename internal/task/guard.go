package task

import (
	"sort"
	"sync"
	"time"
)

// 互斥组：同组任务不能同时运行
const (
	GuardOrders   = "orders"   // 建单：定时同步、全量回填、按 ID 同步
	GuardBackfill = "backfill" // 运费 / 折扣回填、重复物料清理
)

// RunGuard 按组互斥，并保存每组最近一次结果
type RunGuard struct {
	mu      sync.Mutex
	running map[string]time.Time
	last    map[string]LastRun
}

// LastRun 最近一次运行
type LastRun struct {
	FinishedAt time.Time   `json:"finished_at"`
	Result     interface{} `json:"result"`
}

// NewRunGuard 创建互斥组
func NewRunGuard() *RunGuard {
	return &RunGuard{
		running: make(map[string]time.Time),
		last:    make(map[string]LastRun),
	}
}

// TryAcquire 尝试占用，组内已有任务运行时返回 false
func (g *RunGuard) TryAcquire(group string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[group]; busy {
		return false
	}
	g.running[group] = time.Now()
	return true
}

// Release 释放占用
func (g *RunGuard) Release(group string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, group)
}

// Record 记录运行结果
func (g *RunGuard) Record(key string, result interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[key] = LastRun{FinishedAt: time.Now(), Result: result}
}

// Running 正在运行的组
func (g *RunGuard) Running() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	groups := make([]string, 0, len(g.running))
	for k := range g.running {
		groups = append(groups, k)
	}
	sort.Strings(groups)
	return groups
}

// Last 各任务最近一次结果
func (g *RunGuard) Last() map[string]LastRun {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]LastRun, len(g.last))
	for k, v := range g.last {
		out[k] = v
	}
	return out
}
