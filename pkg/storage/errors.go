package storage

import (
	"errors"
	"strings"
)

// ErrNotFound 记录不存在（对外导出）
var ErrNotFound = errors.New("记录不存在")

// ErrConflict 事务冲突（死锁/序列化失败），属于可重试的瞬态错误（对外导出）
var ErrConflict = errors.New("事务冲突")

// IsConflict 判断错误是否为可重试的事务冲突
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}

	// 各驱动的冲突错误没有统一接口，按错误文本识别
	msg := err.Error()
	for _, marker := range []string{
		"deadlock detected",             // postgres 40P01
		"could not serialize access",    // postgres 40001
		"Deadlock found",                // mysql 1213
		"Lock wait timeout",             // mysql 1205
		"database is locked",            // sqlite SQLITE_BUSY
		"database table is locked",      // sqlite SQLITE_LOCKED
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
