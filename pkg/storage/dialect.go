package storage

// Dialect 数据库方言接口（对外导出）
// 屏蔽postgres/mysql/sqlite之间的SQL差异
type Dialect interface {
	// Name 方言名称
	Name() string
	// SchemaSQL 返回建表与索引语句（幂等，可重复执行）
	SchemaSQL() []string
	// InsertIgnoreSQL 返回"插入或忽略冲突"语句（命名占位符形式）
	// 与live_lock唯一索引配合，单条语句完成原子get-or-create的插入侧
	InsertIgnoreSQL(tableName string, columns []string) string
	// LockClause 返回行锁子句（不支持时返回空串）
	LockClause() string
	// TenantScopeSQL 返回事务内设置租户的语句（不支持时返回空串）
	// postgres通过set_config配合RLS策略实现行级租户隔离
	TenantScopeSQL() string
}
