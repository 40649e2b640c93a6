package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ScanDefaults get-or-create未命中时新记录的默认值
type ScanDefaults struct {
	State       string
	Name        string
	ScheduledAt time.Time
}

// GetOrCreateScanParams 原子get-or-create的匹配条件与默认值
// 匹配按状态集合（LiveStates）而非日期
type GetOrCreateScanParams struct {
	TenantID        string
	ProviderID      string
	SchedulerTaskID string
	Defaults        ScanDefaults
}

// ScanRepository 扫描记录仓库接口（对外导出）
// 所有读写都以租户为边界，跨租户访问属于正确性违规
type ScanRepository interface {
	// GetOrCreateScheduled 原子get-or-create调度扫描记录
	// 返回记录与是否新建标记；并发触发下至多创建一条
	GetOrCreateScheduled(ctx context.Context, params GetOrCreateScanParams) (*Scan, bool, error)
	// FindExecutingScheduled 查找当天处于executing状态的调度扫描
	FindExecutingScheduled(ctx context.Context, tenantID, providerID, schedulerTaskID string, day time.Time) (*Scan, error)
	// GetByID 按ID查询（租户内）
	GetByID(ctx context.Context, tenantID, scanID string) (*Scan, error)
	// UpdateState 更新扫描状态（租户内）
	UpdateState(ctx context.Context, tenantID, scanID, state string) error
}

// PeriodicTaskRepository 调度任务身份仓库接口（对外导出）
type PeriodicTaskRepository interface {
	// GetByName 按well-known名称查找调度任务；不存在返回ErrNotFound
	GetByName(ctx context.Context, tenantID, name string) (*PeriodicTask, error)
	// Save 保存调度任务
	Save(ctx context.Context, task *PeriodicTask) error
}

// Store sqlx存储实现（对外导出），同时实现ScanRepository和PeriodicTaskRepository
type Store struct {
	db       *sqlx.DB
	dialect  Dialect
	attempts int // 事务冲突重试次数
}

// NewStore 创建存储实例并初始化表结构（对外导出）
func NewStore(db *sqlx.DB, dialect Dialect, conflictAttempts int) (*Store, error) {
	if conflictAttempts <= 0 {
		conflictAttempts = 5
	}
	s := &Store{db: db, dialect: dialect, attempts: conflictAttempts}
	for _, stmt := range dialect.SchemaSQL() {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("初始化表结构失败: %w", err)
		}
	}
	return s, nil
}

// DB 获取底层数据库连接（对外导出）
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close 关闭数据库连接（对外导出）
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// withTenantTx 在租户作用域事务内执行fn
// postgres下通过set_config绑定租户供RLS策略使用；其余方言由查询条件兜底
func (s *Store) withTenantTx(ctx context.Context, tenantID string, fn func(tx *sqlx.Tx) error) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID 不能为空")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}

	if scope := s.dialect.TenantScopeSQL(); scope != "" {
		if _, err := tx.ExecContext(ctx, scope, tenantID); err != nil {
			tx.Rollback()
			return fmt.Errorf("设置租户作用域失败: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// retryOnConflict 有界重试：仅重试事务冲突类瞬态错误
func (s *Store) retryOnConflict(op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = fn()
		if err == nil || !IsConflict(err) {
			return err
		}
		// 简单退避后重试
		time.Sleep(time.Duration(attempt*10) * time.Millisecond)
	}
	return fmt.Errorf("%s 重试%d次后仍然冲突: %w", op, s.attempts, err)
}

// GetOrCreateScheduled 实现ScanRepository接口
func (s *Store) GetOrCreateScheduled(ctx context.Context, params GetOrCreateScanParams) (*Scan, bool, error) {
	var (
		result  *Scan
		created bool
	)

	err := s.retryOnConflict("get-or-create扫描记录", func() error {
		result, created = nil, false
		return s.withTenantTx(ctx, params.TenantID, func(tx *sqlx.Tx) error {
			// 先按状态集合查找存活记录（不过滤日期）
			existing, err := s.findLive(ctx, tx, params)
			if err != nil {
				return err
			}
			if existing != nil {
				result = existing
				return nil
			}

			// 未命中则插入；live_lock唯一索引保证并发下只有一条插入成功
			one := 1
			scheduledAt := params.Defaults.ScheduledAt
			record := &Scan{
				ID:              uuid.NewString(),
				TenantID:        params.TenantID,
				ProviderID:      params.ProviderID,
				Trigger:         TriggerScheduled,
				State:           params.Defaults.State,
				SchedulerTaskID: params.SchedulerTaskID,
				Name:            params.Defaults.Name,
				ScheduledAt:     &scheduledAt,
				CreatedAt:       time.Now().UTC(),
				LiveLock:        &one,
			}

			insertSQL := s.dialect.InsertIgnoreSQL("scans", []string{
				"id", "tenant_id", "provider_id", "trigger_kind", "state",
				"scheduler_task_id", "name", "scheduled_at", "created_at", "live_lock",
			})
			res, err := tx.NamedExecContext(ctx, insertSQL, record)
			if err != nil {
				return fmt.Errorf("插入扫描记录失败: %w", err)
			}

			affected, _ := res.RowsAffected()
			if affected > 0 {
				result, created = record, true
				return nil
			}

			// 被并发插入抢先，回读存活记录
			existing, err = s.findLive(ctx, tx, params)
			if err != nil {
				return err
			}
			if existing == nil {
				// 插入被忽略但又查不到记录，按冲突处理交给重试
				return ErrConflict
			}
			result = existing
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// findLive 查找处于存活状态集合的调度扫描记录
func (s *Store) findLive(ctx context.Context, tx *sqlx.Tx, params GetOrCreateScanParams) (*Scan, error) {
	query := `SELECT * FROM scans
		WHERE tenant_id = ? AND provider_id = ? AND trigger_kind = ?
		AND scheduler_task_id = ? AND state IN (?, ?)` + s.dialect.LockClause()
	query = tx.Rebind(query)

	var scan Scan
	err := tx.GetContext(ctx, &scan, query,
		params.TenantID, params.ProviderID, TriggerScheduled,
		params.SchedulerTaskID, LiveStates[0], LiveStates[1])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询存活扫描记录失败: %w", err)
	}
	return &scan, nil
}

// FindExecutingScheduled 实现ScanRepository接口
func (s *Store) FindExecutingScheduled(ctx context.Context, tenantID, providerID, schedulerTaskID string, day time.Time) (*Scan, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var result *Scan
	err := s.withTenantTx(ctx, tenantID, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`SELECT * FROM scans
			WHERE tenant_id = ? AND provider_id = ? AND trigger_kind = ? AND state = ?
			AND scheduler_task_id = ? AND scheduled_at >= ? AND scheduled_at < ?`)

		var scan Scan
		err := tx.GetContext(ctx, &scan, query,
			tenantID, providerID, TriggerScheduled, StateExecuting,
			schedulerTaskID, dayStart, dayEnd)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("查询执行中扫描记录失败: %w", err)
		}
		result = &scan
		return nil
	})
	return result, err
}

// GetByID 实现ScanRepository接口
func (s *Store) GetByID(ctx context.Context, tenantID, scanID string) (*Scan, error) {
	var result *Scan
	err := s.withTenantTx(ctx, tenantID, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`SELECT * FROM scans WHERE tenant_id = ? AND id = ?`)
		var scan Scan
		err := tx.GetContext(ctx, &scan, query, tenantID, scanID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("查询扫描记录失败: %w", err)
		}
		result = &scan
		return nil
	})
	return result, err
}

// UpdateState 实现ScanRepository接口
// 离开存活状态集合时清空live_lock，释放唯一索引占位
func (s *Store) UpdateState(ctx context.Context, tenantID, scanID, state string) error {
	return s.withTenantTx(ctx, tenantID, func(tx *sqlx.Tx) error {
		var lock *int
		for _, live := range LiveStates {
			if state == live {
				one := 1
				lock = &one
				break
			}
		}

		query := tx.Rebind(`UPDATE scans SET state = ?, live_lock = ? WHERE tenant_id = ? AND id = ?`)
		res, err := tx.ExecContext(ctx, query, state, lock, tenantID, scanID)
		if err != nil {
			return fmt.Errorf("更新扫描状态失败: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetByName 实现PeriodicTaskRepository接口
func (s *Store) GetByName(ctx context.Context, tenantID, name string) (*PeriodicTask, error) {
	var result *PeriodicTask
	err := s.withTenantTx(ctx, tenantID, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`SELECT * FROM periodic_tasks WHERE tenant_id = ? AND name = ?`)
		var task PeriodicTask
		err := tx.GetContext(ctx, &task, query, tenantID, name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("调度任务 %s: %w", name, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("查询调度任务失败: %w", err)
		}
		result = &task
		return nil
	})
	return result, err
}

// Save 实现PeriodicTaskRepository接口
func (s *Store) Save(ctx context.Context, task *PeriodicTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	return s.withTenantTx(ctx, task.TenantID, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO periodic_tasks
			(id, tenant_id, name, cron_expr, enabled, created_at)
			VALUES (:id, :tenant_id, :name, :cron_expr, :enabled, :created_at)`, task)
		if err != nil {
			return fmt.Errorf("保存调度任务失败: %w", err)
		}
		return nil
	})
}
