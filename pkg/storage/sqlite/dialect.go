// Package sqlite SQLite方言实现，主要用于本地开发与测试。
package sqlite

import (
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Dialect SQLite方言（对外导出）
type Dialect struct{}

// New 创建SQLite方言实例
func New() *Dialect {
	return &Dialect{}
}

// Name 返回方言名称
func (d *Dialect) Name() string {
	return "sqlite3"
}

// SchemaSQL 返回建表与索引语句
func (d *Dialect) SchemaSQL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			provider_id TEXT NOT NULL,
			trigger_kind TEXT NOT NULL,
			state TEXT NOT NULL,
			scheduler_task_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			scheduled_at DATETIME,
			created_at DATETIME NOT NULL,
			live_lock INTEGER
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uk_scans_live
			ON scans (tenant_id, provider_id, trigger_kind, scheduler_task_id, live_lock)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_tenant_state ON scans (tenant_id, state)`,
		`CREATE TABLE IF NOT EXISTS periodic_tasks (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			cron_expr TEXT NOT NULL DEFAULT '',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			UNIQUE (tenant_id, name)
		)`,
	}
}

// InsertIgnoreSQL 返回INSERT OR IGNORE插入语句
func (d *Dialect) InsertIgnoreSQL(tableName string, columns []string) string {
	named := make([]string, len(columns))
	for i, col := range columns {
		named[i] = ":" + col
	}
	return fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(named, ", "),
	)
}

// LockClause SQLite不支持行锁，依赖数据库级写锁
func (d *Dialect) LockClause() string {
	return ""
}

// TenantScopeSQL SQLite无会话变量，租户隔离由查询条件兜底
func (d *Dialect) TenantScopeSQL() string {
	return ""
}
