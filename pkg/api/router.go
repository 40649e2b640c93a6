// Package api 管理API：工作流查询、手动触发运行与事件流推送。
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/LENAX/scan-orchestrator/pkg/api/handler"
	"github.com/LENAX/scan-orchestrator/pkg/api/middleware"
	"github.com/LENAX/scan-orchestrator/pkg/config"
	"github.com/LENAX/scan-orchestrator/pkg/core/events"
	"github.com/LENAX/scan-orchestrator/pkg/pipeline"
)

// SetupRouter 设置路由
func SetupRouter(registrar *pipeline.Registrar, cfg *config.EngineConfig, bus *events.Bus, version string) *gin.Engine {
	// 设置gin模式
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 全局中间件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	// 创建handlers
	workflowHandler := handler.NewWorkflowHandler(registrar, cfg)
	healthHandler := handler.NewHealthHandler(version)

	// 健康检查路由（不带前缀）
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		workflows := v1.Group("/workflows")
		{
			workflows.GET("", workflowHandler.List)
			workflows.POST("/:name/runs", workflowHandler.StartRun)
		}

		if bus != nil {
			eventsHandler := handler.NewEventsHandler(bus)
			v1.GET("/events", eventsHandler.Stream)
		}
	}

	return router
}
