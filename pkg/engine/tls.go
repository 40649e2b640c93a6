package engine

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/LENAX/scan-orchestrator/pkg/config"
)

// LoadTLSConfig 加载双向TLS配置（对外导出）
// 证书三件套必须全部提供；任一文件缺失或无效都报错，不做降级
func LoadTLSConfig(cfg *config.EngineConfig) (*tls.Config, error) {
	caData, err := os.ReadFile(cfg.CACert)
	if err != nil {
		return nil, fmt.Errorf("读取CA证书 %s 失败: %w", cfg.CACert, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caData) {
		return nil, fmt.Errorf("CA证书 %s 不是有效的PEM", cfg.CACert)
	}

	cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("加载客户端证书失败: %w", err)
	}

	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
