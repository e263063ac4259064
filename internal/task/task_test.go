package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify_erp_sync/internal/api/dto"
	"shopify_erp_sync/internal/service"
)

// ==================== 测试用同步服务 ====================

type mockSyncer struct {
	mu       sync.Mutex
	calls    map[string]int
	triggers []string

	// block 非空时 Backfill / 运费回填会等待关闭，blockRecent 时 SyncRecent 同样等待
	block       chan struct{}
	blockRecent bool
	started     chan struct{}
	recentDone  bool
}

func newMockSyncer() *mockSyncer {
	return &mockSyncer{calls: make(map[string]int), started: make(chan struct{}, 8)}
}

func (m *mockSyncer) hit(op string) {
	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()
}

func (m *mockSyncer) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *mockSyncer) wait(ctx context.Context) {
	m.started <- struct{}{}
	if m.block == nil {
		return
	}
	select {
	case <-m.block:
	case <-ctx.Done():
	}
}

func (m *mockSyncer) SyncRecent(ctx context.Context, trigger string) *dto.SyncResult {
	m.hit(service.OpSyncRecent)
	m.mu.Lock()
	m.triggers = append(m.triggers, trigger)
	m.mu.Unlock()
	if m.blockRecent {
		m.wait(ctx)
	}
	m.mu.Lock()
	m.recentDone = true
	m.mu.Unlock()
	return &dto.SyncResult{RunID: "recent", Trigger: trigger, Fetched: 2, Created: []string{"SAL-ORD-2024-00001"}}
}

func (m *mockSyncer) Backfill(ctx context.Context, trigger string) *dto.SyncResult {
	m.hit(service.OpBackfill)
	m.wait(ctx)
	return &dto.SyncResult{RunID: "backfill", Trigger: trigger}
}

func (m *mockSyncer) SyncByIDs(_ context.Context, ids []int64) *dto.SyncResult {
	m.hit(service.OpSyncByIDs)
	return &dto.SyncResult{RunID: "ids", Trigger: dto.TriggerManual, Fetched: len(ids)}
}

func (m *mockSyncer) BackfillShippingCharges(ctx context.Context) *dto.BackfillResult {
	m.hit(service.OpShippingCharges)
	m.wait(ctx)
	return &dto.BackfillResult{RunID: "shipping"}
}

func (m *mockSyncer) BackfillDiscounts(_ context.Context) *dto.BackfillResult {
	m.hit(service.OpDiscounts)
	return &dto.BackfillResult{RunID: "discounts"}
}

func (m *mockSyncer) RemoveDuplicateItems(_ context.Context) (*dto.BackfillResult, error) {
	m.hit(service.OpRemoveDupItems)
	return &dto.BackfillResult{RunID: "dups", Scanned: 3}, nil
}

func newTestManager(m *mockSyncer, cronOn bool) *TaskManager {
	return NewTaskManager(m, TaskManagerConfig{
		CronEnabled: cronOn,
		CronSpec:    "0 */5 * * * *",
		RunTimeout:  time.Second,
	}, nil)
}

// ==================== RunGuard ====================

func TestRunGuard_Exclusive(t *testing.T) {
	g := NewRunGuard()

	require.True(t, g.TryAcquire(GuardOrders))
	assert.False(t, g.TryAcquire(GuardOrders))
	assert.True(t, g.TryAcquire(GuardBackfill), "不同组互不影响")
	assert.Equal(t, []string{GuardBackfill, GuardOrders}, g.Running())

	g.Release(GuardOrders)
	assert.True(t, g.TryAcquire(GuardOrders))
}

func TestRunGuard_ConcurrentAcquire(t *testing.T) {
	g := NewRunGuard()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire(GuardOrders) {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestRunGuard_RecordReturnsCopy(t *testing.T) {
	g := NewRunGuard()
	g.Record(service.OpSyncRecent, "ok")

	last := g.Last()
	delete(last, service.OpSyncRecent)

	assert.Contains(t, g.Last(), service.OpSyncRecent)
}

// ==================== OrderSyncTask ====================

func TestOrderSyncTask_RunNow(t *testing.T) {
	m := newMockSyncer()
	guard := NewRunGuard()
	task := NewOrderSyncTask(m, guard, "0 */5 * * * *", time.Second, nil)

	result, err := task.RunNow(context.Background(), dto.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, "recent", result.RunID)
	assert.Equal(t, []string{dto.TriggerManual}, m.triggers)
	assert.Contains(t, guard.Last(), service.OpSyncRecent)
	assert.Empty(t, guard.Running())
}

func TestOrderSyncTask_RunNowWhileBusy(t *testing.T) {
	m := newMockSyncer()
	guard := NewRunGuard()
	task := NewOrderSyncTask(m, guard, "0 */5 * * * *", time.Second, nil)

	require.True(t, guard.TryAcquire(GuardOrders))
	_, err := task.RunNow(context.Background(), dto.TriggerCron)
	assert.ErrorIs(t, err, ErrTaskRunning)
	assert.Zero(t, m.count(service.OpSyncRecent))
}

func TestOrderSyncTask_InvalidSpec(t *testing.T) {
	task := NewOrderSyncTask(newMockSyncer(), NewRunGuard(), "not a spec", time.Second, nil)
	assert.Error(t, task.Start())
}

func TestOrderSyncTask_StartRunsOnce(t *testing.T) {
	m := newMockSyncer()
	task := NewOrderSyncTask(m, NewRunGuard(), "0 0 0 1 1 *", time.Second, nil)
	require.NoError(t, task.Start())
	defer task.Stop()

	assert.Eventually(t, func() bool { return m.count(service.OpSyncRecent) == 1 }, time.Second, 10*time.Millisecond)
	m.mu.Lock()
	assert.Equal(t, []string{dto.TriggerCron}, m.triggers)
	m.mu.Unlock()
}

func TestOrderSyncTask_StopWaitsForInitialRun(t *testing.T) {
	m := newMockSyncer()
	m.block = make(chan struct{})
	m.blockRecent = true
	task := NewOrderSyncTask(m, NewRunGuard(), "0 0 0 1 1 *", time.Minute, nil)
	require.NoError(t, task.Start())
	<-m.started

	done := make(chan struct{})
	go func() {
		task.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop 未取消首次同步")
	}
	m.mu.Lock()
	finished := m.recentDone
	m.mu.Unlock()
	assert.True(t, finished, "Stop 返回前首次同步应已退出")

	// 再次 Stop 不阻塞
	task.Stop()
}

// ==================== TaskManager ====================

func TestTaskManager_CronDisabledStillManual(t *testing.T) {
	m := newMockSyncer()
	tm := newTestManager(m, false)
	require.NoError(t, tm.Start())
	defer tm.Stop()

	result, err := tm.SyncRecentNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dto.TriggerManual, result.Trigger)

	byIDs, err := tm.SyncByIDs(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, byIDs.Fetched)

	status := tm.Status()
	assert.False(t, status.CronEnabled)
	assert.Contains(t, status.LastRuns, service.OpSyncRecent)
	assert.Contains(t, status.LastRuns, service.OpSyncByIDs)
}

func TestTaskManager_BackfillExcludesOrderSync(t *testing.T) {
	m := newMockSyncer()
	m.block = make(chan struct{})
	tm := newTestManager(m, false)
	defer tm.Stop()

	require.NoError(t, tm.TriggerBackfill())
	<-m.started

	assert.ErrorIs(t, tm.TriggerBackfill(), ErrTaskRunning)
	_, err := tm.SyncRecentNow(context.Background())
	assert.ErrorIs(t, err, ErrTaskRunning)
	_, err = tm.SyncByIDs(context.Background(), []int64{1})
	assert.ErrorIs(t, err, ErrTaskRunning)
	assert.Equal(t, []string{GuardOrders}, tm.Status().Running)

	// 回填组不受影响
	res, err := tm.RemoveDuplicateItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Scanned)

	close(m.block)
	assert.Eventually(t, func() bool { return len(tm.Status().Running) == 0 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, tm.Status().LastRuns, service.OpBackfill)
}

func TestTaskManager_BackfillGroup(t *testing.T) {
	m := newMockSyncer()
	m.block = make(chan struct{})
	tm := newTestManager(m, false)
	defer tm.Stop()

	require.NoError(t, tm.TriggerShippingBackfill())
	<-m.started

	assert.ErrorIs(t, tm.TriggerDiscountBackfill(), ErrTaskRunning)
	_, err := tm.RemoveDuplicateItems(context.Background())
	assert.ErrorIs(t, err, ErrTaskRunning)

	close(m.block)
	assert.Eventually(t, func() bool { return len(tm.Status().Running) == 0 }, time.Second, 10*time.Millisecond)

	require.NoError(t, tm.TriggerDiscountBackfill())
	assert.Eventually(t, func() bool { return m.count(service.OpDiscounts) == 1 }, time.Second, 10*time.Millisecond)
}

func TestTaskManager_StopCancelsAsync(t *testing.T) {
	m := newMockSyncer()
	m.block = make(chan struct{})
	tm := newTestManager(m, false)

	require.NoError(t, tm.TriggerBackfill())
	<-m.started

	done := make(chan struct{})
	go func() {
		tm.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop 未等待后台任务退出")
	}
	assert.ErrorIs(t, tm.TriggerBackfill(), ErrTaskStopped)
}

func TestTaskManager_StopIsIdempotent(t *testing.T) {
	m := newMockSyncer()
	tm := newTestManager(m, true)
	require.NoError(t, tm.Start())

	done := make(chan struct{})
	go func() {
		tm.Stop()
		tm.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("重复 Stop 被阻塞")
	}
	assert.ErrorIs(t, tm.TriggerDiscountBackfill(), ErrTaskStopped)
}
