package config

import (
	"errors"
	"fmt"
)

// ErrIncompleteTLS TLS证书配置不完整（对外导出）
// 三个证书路径必须同时提供，部分提供属于致命配置错误
var ErrIncompleteTLS = errors.New("TLS证书配置不完整: ca_cert/client_cert/client_key 必须同时提供")

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.Engine.Host == "" {
		return fmt.Errorf("engine.host 不能为空")
	}
	if c.Engine.Port <= 0 || c.Engine.Port > 65535 {
		return fmt.Errorf("engine.port 无效: %d", c.Engine.Port)
	}

	// TLS三件套：全有或全无
	certCount := 0
	for _, p := range []string{c.Engine.CACert, c.Engine.ClientCert, c.Engine.ClientKey} {
		if p != "" {
			certCount++
		}
	}
	if certCount != 0 && certCount != 3 {
		return ErrIncompleteTLS
	}

	if c.Engine.TaskTimeoutMS <= 0 {
		return fmt.Errorf("engine.task_timeout_ms 必须为正数: %d", c.Engine.TaskTimeoutMS)
	}
	if c.Engine.WorkflowTimeoutMS <= 0 {
		return fmt.Errorf("engine.workflow_timeout_ms 必须为正数: %d", c.Engine.WorkflowTimeoutMS)
	}

	switch c.Store.Driver {
	case "postgres", "mysql", "sqlite3":
	default:
		return fmt.Errorf("不支持的数据库类型: %s", c.Store.Driver)
	}
	if c.Store.ConflictAttempts <= 0 {
		return fmt.Errorf("store.conflict_attempts 必须为正数: %d", c.Store.ConflictAttempts)
	}

	return nil
}
