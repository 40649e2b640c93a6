package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults 测试默认配置
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Engine.Host)
	assert.Equal(t, 2023, cfg.Engine.Port)
	assert.Equal(t, 3600000, cfg.Engine.TaskTimeoutMS)
	assert.Equal(t, 7200000, cfg.Engine.WorkflowTimeoutMS)
	assert.Equal(t, 5, cfg.Store.ConflictAttempts)
	assert.False(t, cfg.Engine.TLSEnabled())
}

// TestLoadEnvOverride 测试环境变量覆盖
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ENGINE_API_HOST", "engine.internal")
	t.Setenv("ENGINE_API_PORT", "2033")
	t.Setenv("ENGINE_TASK_TIMEOUT_MS", "60000")
	t.Setenv("STORE_CONFLICT_ATTEMPTS", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "engine.internal", cfg.Engine.Host)
	assert.Equal(t, 2033, cfg.Engine.Port)
	assert.Equal(t, 60000, cfg.Engine.TaskTimeoutMS)
	assert.Equal(t, 3, cfg.Store.ConflictAttempts)
}

// TestLoadYAMLFile 测试YAML文件加载（环境变量优先级高于文件）
func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
engine:
  host: file-host
  port: 9999
store:
  driver: sqlite3
  dsn: test.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("ENGINE_API_PORT", "2024")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-host", cfg.Engine.Host)
	assert.Equal(t, 2024, cfg.Engine.Port) // 环境变量覆盖文件值
	assert.Equal(t, "test.db", cfg.Store.DSN)
}

// TestValidateIncompleteTLS 测试TLS证书不完整时报错
func TestValidateIncompleteTLS(t *testing.T) {
	t.Setenv("ENGINE_CA_CERT", "/certs/ca.pem")

	_, err := Load("")
	require.ErrorIs(t, err, ErrIncompleteTLS)
}

// TestValidateCompleteTLS 测试TLS证书齐全时启用
func TestValidateCompleteTLS(t *testing.T) {
	t.Setenv("ENGINE_CA_CERT", "/certs/ca.pem")
	t.Setenv("ENGINE_CLIENT_CERT", "/certs/client.pem")
	t.Setenv("ENGINE_CLIENT_KEY", "/certs/client.key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Engine.TLSEnabled())
}

// TestValidateBadDriver 测试不支持的数据库类型
func TestValidateBadDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := Load("")
	require.Error(t, err)
}
