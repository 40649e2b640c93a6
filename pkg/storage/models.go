package storage

import (
	"time"
)

// 扫描触发方式
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// 扫描状态机: scheduled → executing → completed/failed
// available 表示已创建但尚未排期的记录
const (
	StateAvailable = "available"
	StateScheduled = "scheduled"
	StateExecuting = "executing"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// LiveStates get-or-create匹配的状态集合
// 注意：按状态集合匹配而非按日期匹配，前一天遗留的scheduled记录会被复用
var LiveStates = []string{StateScheduled, StateAvailable}

// Scan 扫描记录（对外导出）
// 调度扫描的核心不变量：同一(tenant, provider, scheduler_task, 日期)下
// 最多只能有一条处于 scheduled/executing 状态的记录
type Scan struct {
	ID              string     `db:"id" json:"id"`
	TenantID        string     `db:"tenant_id" json:"tenant_id"`
	ProviderID      string     `db:"provider_id" json:"provider_id"`
	Trigger         string     `db:"trigger_kind" json:"trigger"`
	State           string     `db:"state" json:"state"`
	SchedulerTaskID string     `db:"scheduler_task_id" json:"scheduler_task_id"`
	Name            string     `db:"name" json:"name"`
	ScheduledAt     *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`

	// liveLock 活跃状态占位列：state ∈ {scheduled, available} 时为1，否则为NULL
	// 唯一索引覆盖该列，用单条INSERT关闭并发创建竞争
	LiveLock *int `db:"live_lock" json:"-"`
}

// PeriodicTask 调度任务身份（对外导出）
// 每个Provider的定时扫描对应一条记录，命名规则: scan-perform-scheduled-{providerId}
type PeriodicTask struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	CronExpr  string    `db:"cron_expr" json:"cron_expr"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SchedulerTaskName 返回Provider对应的调度任务名称
func SchedulerTaskName(providerID string) string {
	return "scan-perform-scheduled-" + providerID
}
