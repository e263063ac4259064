package task

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"shopify_erp_sync/internal/api/dto"
	"shopify_erp_sync/internal/service"
)

// ==================== TaskManager 同步任务管理器 ====================

// Syncer 同步服务能力
type Syncer interface {
	RecentSyncer
	Backfill(ctx context.Context, trigger string) *dto.SyncResult
	SyncByIDs(ctx context.Context, orderIDs []int64) *dto.SyncResult
	BackfillShippingCharges(ctx context.Context) *dto.BackfillResult
	BackfillDiscounts(ctx context.Context) *dto.BackfillResult
	RemoveDuplicateItems(ctx context.Context) (*dto.BackfillResult, error)
}

// TaskManager 统一管理定时同步与手动触发
// 定时任务关闭时手动触发仍可用
type TaskManager struct {
	syncer     Syncer
	orderTask  *OrderSyncTask
	guard      *RunGuard
	cronOn     bool
	cronSpec   string
	runTimeout time.Duration
	log        *zap.Logger

	// 异步任务使用的根 context，Stop 时取消
	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu       sync.Mutex // 保护 stopped 与 wg.Add
	stopped  bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	CronEnabled bool
	CronSpec    string
	RunTimeout  time.Duration
	RunOnStart  bool
}

// NewTaskManager 创建任务管理器
func NewTaskManager(syncer Syncer, cfg TaskManagerConfig, log *zap.Logger) *TaskManager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Minute
	}

	guard := NewRunGuard()
	orderTask := NewOrderSyncTask(syncer, guard, cfg.CronSpec, cfg.RunTimeout, log)
	orderTask.SetRunOnStart(cfg.RunOnStart)

	ctx, cancel := context.WithCancel(context.Background())
	return &TaskManager{
		syncer:     syncer,
		orderTask:  orderTask,
		guard:      guard,
		cronOn:     cfg.CronEnabled,
		cronSpec:   cfg.CronSpec,
		runTimeout: cfg.RunTimeout,
		log:        log,
		rootCtx:    ctx,
		rootCancel: cancel,
	}
}

// ==================== 生命周期管理 ====================

// Start 启动定时任务
func (tm *TaskManager) Start() error {
	if !tm.cronOn {
		tm.log.Info("[TaskManager] 定时同步已关闭，仅支持手动触发")
		return nil
	}
	return tm.orderTask.Start()
}

// Stop 停止定时任务并取消未完成的异步任务，重复调用只生效一次
func (tm *TaskManager) Stop() {
	tm.stopOnce.Do(func() {
		tm.log.Info("[TaskManager] 正在停止同步任务...")

		tm.mu.Lock()
		tm.stopped = true
		tm.mu.Unlock()

		if tm.cronOn {
			tm.orderTask.Stop()
		}
		tm.rootCancel()

		// 等待异步任务退出
		tm.wg.Wait()
		tm.log.Info("[TaskManager] 同步任务已全部停止")
	})
}

// ==================== 手动触发接口 ====================

// SyncRecentNow 立即同步最近订单
func (tm *TaskManager) SyncRecentNow(ctx context.Context) (*dto.SyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, tm.runTimeout)
	defer cancel()
	return tm.orderTask.RunNow(ctx, dto.TriggerManual)
}

// SyncByIDs 按 Shopify 订单 ID 同步
func (tm *TaskManager) SyncByIDs(ctx context.Context, orderIDs []int64) (*dto.SyncResult, error) {
	if !tm.guard.TryAcquire(GuardOrders) {
		return nil, ErrTaskRunning
	}
	defer tm.guard.Release(GuardOrders)

	ctx, cancel := context.WithTimeout(ctx, tm.runTimeout)
	defer cancel()

	result := tm.syncer.SyncByIDs(ctx, orderIDs)
	tm.guard.Record(service.OpSyncByIDs, result)
	return result, nil
}

// TriggerBackfill 后台执行全量回填
func (tm *TaskManager) TriggerBackfill() error {
	return tm.runAsync(GuardOrders, service.OpBackfill, func(ctx context.Context) interface{} {
		return tm.syncer.Backfill(ctx, dto.TriggerManual)
	})
}

// TriggerShippingBackfill 后台执行运费回填
func (tm *TaskManager) TriggerShippingBackfill() error {
	return tm.runAsync(GuardBackfill, service.OpShippingCharges, func(ctx context.Context) interface{} {
		return tm.syncer.BackfillShippingCharges(ctx)
	})
}

// TriggerDiscountBackfill 后台执行折扣回填
func (tm *TaskManager) TriggerDiscountBackfill() error {
	return tm.runAsync(GuardBackfill, service.OpDiscounts, func(ctx context.Context) interface{} {
		return tm.syncer.BackfillDiscounts(ctx)
	})
}

// RemoveDuplicateItems 清理草稿订单重复物料行
func (tm *TaskManager) RemoveDuplicateItems(ctx context.Context) (*dto.BackfillResult, error) {
	if !tm.guard.TryAcquire(GuardBackfill) {
		return nil, ErrTaskRunning
	}
	defer tm.guard.Release(GuardBackfill)

	result, err := tm.syncer.RemoveDuplicateItems(ctx)
	if err != nil {
		return nil, err
	}
	tm.guard.Record(service.OpRemoveDupItems, result)
	return result, nil
}

// runAsync 占用互斥组后在后台执行，结果通过 Status 查询
func (tm *TaskManager) runAsync(group, op string, fn func(ctx context.Context) interface{}) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.stopped {
		return ErrTaskStopped
	}
	if !tm.guard.TryAcquire(group) {
		return ErrTaskRunning
	}

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		defer tm.guard.Release(group)
		defer func() {
			if r := recover(); r != nil {
				tm.log.Error("[TaskManager] 后台任务 panic", zap.String("op", op), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(tm.rootCtx, tm.runTimeout)
		defer cancel()

		tm.log.Info("[TaskManager] 后台任务开始", zap.String("op", op))
		tm.guard.Record(op, fn(ctx))
		tm.log.Info("[TaskManager] 后台任务结束", zap.String("op", op))
	}()
	return nil
}

// ==================== 状态查询 ====================

// TaskStatus 任务状态
type TaskStatus struct {
	CronEnabled bool               `json:"cron_enabled"`
	CronSpec    string             `json:"cron_spec"`
	Running     []string           `json:"running"`
	LastRuns    map[string]LastRun `json:"last_runs"`
}

// Status 获取任务状态
func (tm *TaskManager) Status() TaskStatus {
	return TaskStatus{
		CronEnabled: tm.cronOn,
		CronSpec:    tm.cronSpec,
		Running:     tm.guard.Running(),
		LastRuns:    tm.guard.Last(),
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskRunning TaskError = "task is already running"
	ErrTaskStopped TaskError = "task manager is stopped"
)
