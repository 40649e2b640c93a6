// Package mysql MySQL方言实现。
package mysql

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// Dialect MySQL方言（对外导出）
type Dialect struct{}

// New 创建MySQL方言实例
func New() *Dialect {
	return &Dialect{}
}

// Name 返回方言名称
func (d *Dialect) Name() string {
	return "mysql"
}

// SchemaSQL 返回建表语句
// MySQL的CREATE INDEX不支持IF NOT EXISTS，索引内嵌在表DDL中
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
			scheduled_at DATETIME,
			created_at DATETIME NOT NULL,
			live_lock TINYINT,
			UNIQUE KEY uk_scans_live (tenant_id, provider_id, trigger_kind, scheduler_task_id, live_lock),
			INDEX idx_scans_tenant_state (tenant_id, state)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS periodic_tasks (
			id VARCHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			cron_expr VARCHAR(100) NOT NULL DEFAULT '',
			enabled TINYINT(1) NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			UNIQUE KEY uk_periodic_tasks_tenant_name (tenant_id, name)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
}

// InsertIgnoreSQL 返回INSERT IGNORE插入语句
func (d *Dialect) InsertIgnoreSQL(tableName string, columns []string) string {
	named := make([]string, len(columns))
	for i, col := range columns {
		named[i] = ":" + col
	}
	return fmt.Sprintf(
		"INSERT IGNORE INTO %s (%s) VALUES (%s)",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(named, ", "),
	)
}

// LockClause 返回行锁子句
func (d *Dialect) LockClause() string {
	return " FOR UPDATE"
}

// TenantScopeSQL MySQL无RLS，租户隔离由查询条件兜底
func (d *Dialect) TenantScopeSQL() string {
	return ""
}
