package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"shopify_erp_sync/internal/api/dto"
	"shopify_erp_sync/internal/service"
)

// ==================== OrderSyncTask 订单同步任务 ====================

// RecentSyncer 最近订单同步
type RecentSyncer interface {
	SyncRecent(ctx context.Context, trigger string) *dto.SyncResult
}

// OrderSyncTask 定时拉取最近订单并建单
type OrderSyncTask struct {
	syncer  RecentSyncer
	guard   *RunGuard
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	log     *zap.Logger

	runOnStart bool

	// 定时与首次执行共用的根 context，Stop 时取消
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrderSyncTask 创建订单同步任务
// 同一时刻只允许一次建单运行（定时与手动共用 guard）
func NewOrderSyncTask(syncer RecentSyncer, guard *RunGuard, spec string, timeout time.Duration, log *zap.Logger) *OrderSyncTask {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	ctx, cancel := context.WithCancel(context.Background())

	return &OrderSyncTask{
		syncer: syncer,
		guard:  guard,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		spec:       spec,
		timeout:    timeout,
		log:        log,
		runOnStart: true,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetRunOnStart 启动时是否立即执行一次
func (t *OrderSyncTask) SetRunOnStart(v bool) {
	t.runOnStart = v
}

// Start 启动定时任务
func (t *OrderSyncTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, func() { t.runScheduled() }); err != nil {
		t.log.Error("[OrderSyncTask] 定时任务启动失败", zap.String("spec", t.spec), zap.Error(err))
		return err
	}

	if t.runOnStart {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.log.Info("[OrderSyncTask] 执行首次订单同步...")
			t.runScheduled()
		}()
	}

	t.cron.Start()
	t.log.Info("[OrderSyncTask] 已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止任务：取消正在执行的同步，并等待定时任务与首次同步退出
// 可重复调用
func (t *OrderSyncTask) Stop() {
	t.cancel()
	<-t.cron.Stop().Done()
	t.wg.Wait()
	t.log.Info("[OrderSyncTask] 已停止")
}

func (t *OrderSyncTask) runScheduled() {
	if t.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()

	if _, err := t.RunNow(ctx, dto.TriggerCron); err != nil {
		t.log.Info("[OrderSyncTask] 上一次同步仍在执行，本次跳过")
	}
}

// RunNow 立即执行一次同步；已有建单任务在执行时返回 ErrTaskRunning
func (t *OrderSyncTask) RunNow(ctx context.Context, trigger string) (*dto.SyncResult, error) {
	if !t.guard.TryAcquire(GuardOrders) {
		return nil, ErrTaskRunning
	}
	defer t.guard.Release(GuardOrders)

	result := t.syncer.SyncRecent(ctx, trigger)
	t.guard.Record(service.OpSyncRecent, result)

	for _, e := range result.Errors {
		t.log.Warn("[OrderSyncTask] 订单同步警告", zap.String("run_id", result.RunID), zap.String("error", e))
	}
	return result, nil
}
