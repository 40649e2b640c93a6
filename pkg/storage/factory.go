package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/scan-orchestrator/pkg/storage/mysql"
	"github.com/LENAX/scan-orchestrator/pkg/storage/postgres"
	"github.com/LENAX/scan-orchestrator/pkg/storage/sqlite"
)

// Open 按驱动类型打开数据库并创建Store（对外导出）
// driver: postgres/mysql/sqlite3
func Open(driver, dsn string, conflictAttempts int) (*Store, error) {
	var dialect Dialect
	switch driver {
	case "postgres":
		dialect = postgres.New()
	case "mysql":
		dialect = mysql.New()
	case "sqlite3":
		dialect = sqlite.New()
	default:
		return nil, fmt.Errorf("不支持的数据库类型: %s", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	return NewStore(db, dialect, conflictAttempts)
}
