// Package postgres PostgreSQL方言实现。
package postgres

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// Dialect PostgreSQL方言（对外导出）
type Dialect struct{}

// New 创建PostgreSQL方言实例
func New() *Dialect {
	return &Dialect{}
}

// Name 返回方言名称
func (d *Dialect) Name() string {
	return "postgres"
}

// SchemaSQL 返回建表与索引语句
// live_lock唯一索引中NULL互不冲突，只有存活状态的记录参与唯一性约束
func (d *Dialect) SchemaSQL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id VARCHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(36) NOT NULL,
			provider_id VARCHAR(36) NOT NULL,
			trigger_kind VARCHAR(16) NOT NULL,
			state VARCHAR(16) NOT NULL,
			scheduler_task_id VARCHAR(36) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL DEFAULT '',
			scheduled_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			live_lock SMALLINT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uk_scans_live
			ON scans (tenant_id, provider_id, trigger_kind, scheduler_task_id, live_lock)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_tenant_state ON scans (tenant_id, state)`,
		`CREATE TABLE IF NOT EXISTS periodic_tasks (
			id VARCHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			cron_expr VARCHAR(100) NOT NULL DEFAULT '',
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			CONSTRAINT uk_periodic_tasks_tenant_name UNIQUE (tenant_id, name)
		)`,
	}
}

// InsertIgnoreSQL 返回ON CONFLICT DO NOTHING插入语句
func (d *Dialect) InsertIgnoreSQL(tableName string, columns []string) string {
	named := make([]string, len(columns))
	for i, col := range columns {
		named[i] = ":" + col
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(named, ", "),
	)
}

// LockClause 返回行锁子句
func (d *Dialect) LockClause() string {
	return " FOR UPDATE"
}

// TenantScopeSQL 返回事务内绑定租户的语句（配合RLS策略）
func (d *Dialect) TenantScopeSQL() string {
	return "SELECT set_config('app.current_tenant', $1, true)"
}
