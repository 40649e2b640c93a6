package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/LENAX/scan-orchestrator/pkg/config"
	"github.com/LENAX/scan-orchestrator/pkg/core/events"
	"github.com/LENAX/scan-orchestrator/pkg/pipeline"
)

// Server 管理API服务器（对外导出）
type Server struct {
	httpServer *http.Server
	listen     string
}

// NewServer 创建管理API服务器
func NewServer(listen string, registrar *pipeline.Registrar, cfg *config.EngineConfig, bus *events.Bus, version string) *Server {
	router := SetupRouter(registrar, cfg, bus, version)
	return &Server{
		listen: listen,
		httpServer: &http.Server{
			Addr:        listen,
			Handler:     router,
			ReadTimeout: 30 * time.Second,
			// WebSocket事件流是长连接，不设写超时
		},
	}
}

// Start 启动服务器（阻塞直到关闭）
func (s *Server) Start() error {
	log.Printf("🚀 管理API启动于 %s", s.listen)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("管理API监听失败: %w", err)
	}
	return nil
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 正在关闭管理API...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("管理API关闭失败: %w", err)
	}

	log.Println("✅ 管理API已停止")
	return nil
}

// Addr 获取监听地址
func (s *Server) Addr() string {
	return s.listen
}
