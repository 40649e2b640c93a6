package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultEngineHost        = "localhost"
	DefaultEnginePort        = 2023
	DefaultTaskTimeoutMS     = 3600000 // 1小时
	DefaultWorkflowTimeoutMS = 7200000 // 2小时
	DefaultConflictAttempts  = 5
)

// EngineConfig 工作流引擎连接配置（对外导出）
type EngineConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// TLS证书三件套：要么全部提供，要么禁用TLS
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`

	TaskTimeoutMS     int `yaml:"task_timeout_ms"`
	WorkflowTimeoutMS int `yaml:"workflow_timeout_ms"`
}

// StoreConfig 存储配置（对外导出）
type StoreConfig struct {
	Driver string `yaml:"driver"` // postgres/mysql/sqlite3
	DSN    string `yaml:"dsn"`
	// 事务冲突重试次数（get-or-create竞争时使用）
	ConflictAttempts int `yaml:"conflict_attempts"`
}

// APIConfig 管理API配置（对外导出）
type APIConfig struct {
	Listen string `yaml:"listen"` // 为空则不启动管理API
}

// Config 进程级配置（对外导出）
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Store  StoreConfig  `yaml:"store"`
	API    APIConfig    `yaml:"api"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Host:              DefaultEngineHost,
			Port:              DefaultEnginePort,
			TaskTimeoutMS:     DefaultTaskTimeoutMS,
			WorkflowTimeoutMS: DefaultWorkflowTimeoutMS,
		},
		Store: StoreConfig{
			Driver:           "sqlite3",
			DSN:              "scan-orchestrator.db",
			ConflictAttempts: DefaultConflictAttempts,
		},
	}
}

// Load 加载配置：先读YAML文件（可选），再用环境变量覆盖
// path为空或文件不存在时只使用默认值+环境变量
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 环境变量覆盖（环境变量优先级最高）
func applyEnv(cfg *Config) {
	if v := os.Getenv("ENGINE_API_HOST"); v != "" {
		cfg.Engine.Host = v
	}
	if v, ok := envInt("ENGINE_API_PORT"); ok {
		cfg.Engine.Port = v
	}
	if v := os.Getenv("ENGINE_CA_CERT"); v != "" {
		cfg.Engine.CACert = v
	}
	if v := os.Getenv("ENGINE_CLIENT_CERT"); v != "" {
		cfg.Engine.ClientCert = v
	}
	if v := os.Getenv("ENGINE_CLIENT_KEY"); v != "" {
		cfg.Engine.ClientKey = v
	}
	if v, ok := envInt("ENGINE_TASK_TIMEOUT_MS"); ok {
		cfg.Engine.TaskTimeoutMS = v
	}
	if v, ok := envInt("ENGINE_WORKFLOW_TIMEOUT_MS"); ok {
		cfg.Engine.WorkflowTimeoutMS = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DSN = v
	}
	if v, ok := envInt("STORE_CONFLICT_ATTEMPTS"); ok {
		cfg.Store.ConflictAttempts = v
	}
	if v := os.Getenv("API_LISTEN"); v != "" {
		cfg.API.Listen = v
	}
}

// envInt 读取整数环境变量
func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// TLSEnabled 是否启用TLS（三个证书路径全部提供才启用）
func (c *EngineConfig) TLSEnabled() bool {
	return c.CACert != "" && c.ClientCert != "" && c.ClientKey != ""
}
