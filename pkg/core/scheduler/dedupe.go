// Package scheduler 调度扫描去重器：保证同一(租户, Provider, 调度任务, 日期)
// 在并发/重试触发下至多产生一次扫描。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LENAX/scan-orchestrator/pkg/storage"
)

// ConfigurationError 配置缺失类致命错误（对外导出）
// 典型场景：Provider缺少调度任务身份。不得自动补建，必须向上传播
type ConfigurationError struct {
	Op  string
	Err error
}

// Error 实现error接口
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("配置错误(%s): %v", e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// SetupResult 调度扫描准备结果（对外导出）
// duplicate是常见的预期结果，作为类型化结果字段而非错误传递
type SetupResult struct {
	ScanID    string        `json:"scan_id"`
	Duplicate bool          `json:"duplicate"`
	Snapshot  *storage.Scan `json:"result,omitempty"`
}

// Deduplicator 调度扫描去重器（对外导出）
// 状态机: NONE → SCHEDULED → EXECUTING → 终态
type Deduplicator struct {
	scans storage.ScanRepository
	tasks storage.PeriodicTaskRepository
	now   func() time.Time
}

// NewDeduplicator 创建去重器（对外导出）
func NewDeduplicator(scans storage.ScanRepository, tasks storage.PeriodicTaskRepository) *Deduplicator {
	return &Deduplicator{
		scans: scans,
		tasks: tasks,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 注入时钟（测试用）
func (d *Deduplicator) WithClock(now func() time.Time) *Deduplicator {
	d.now = now
	return d
}

// SetupScheduledScan 为调度触发准备扫描记录
// 1. 按well-known名称查找调度任务身份，缺失属于致命配置错误
// 2. 当天已有executing记录时不新建，返回duplicate=true与现有记录快照
// 3. 否则原子get-or-create（按存活状态集合匹配，不过滤日期），返回duplicate=false
func (d *Deduplicator) SetupScheduledScan(ctx context.Context, tenantID, providerID string) (*SetupResult, error) {
	taskName := storage.SchedulerTaskName(providerID)
	periodicTask, err := d.tasks.GetByName(ctx, tenantID, taskName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &ConfigurationError{Op: "查找调度任务 " + taskName, Err: err}
		}
		return nil, fmt.Errorf("查找调度任务 %s 失败: %w", taskName, err)
	}

	today := d.now()
	executing, err := d.scans.FindExecutingScheduled(ctx, tenantID, providerID, periodicTask.ID, today)
	if err != nil {
		return nil, err
	}
	if executing != nil {
		log.Printf("[scheduler] provider=%s 当天已有执行中的调度扫描 scan=%s，收敛到现有记录",
			providerID, executing.ID)
		return &SetupResult{ScanID: executing.ID, Duplicate: true, Snapshot: executing}, nil
	}

	nextExecution, err := NextExecutionTime(periodicTask.CronExpr, today)
	if err != nil {
		return nil, &ConfigurationError{Op: "解析调度任务 " + taskName + " 的cron表达式", Err: err}
	}

	scan, created, err := d.scans.GetOrCreateScheduled(ctx, storage.GetOrCreateScanParams{
		TenantID:        tenantID,
		ProviderID:      providerID,
		SchedulerTaskID: periodicTask.ID,
		Defaults: storage.ScanDefaults{
			State:       storage.StateScheduled,
			Name:        "Daily scheduled scan",
			ScheduledAt: nextExecution.Add(-24 * time.Hour),
		},
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[scheduler] provider=%s 调度扫描就绪 scan=%s created=%v", providerID, scan.ID, created)
	return &SetupResult{ScanID: scan.ID, Duplicate: false}, nil
}

// Result 将SetupResult转换为任务结果载荷
func (r *SetupResult) Result() map[string]any {
	payload := map[string]any{
		"scan_id":   r.ScanID,
		"duplicate": r.Duplicate,
	}
	if r.Snapshot != nil {
		payload["result"] = r.Snapshot
	}
	return payload
}
