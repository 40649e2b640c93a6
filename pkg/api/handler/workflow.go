package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/scan-orchestrator/pkg/api/dto"
	"github.com/LENAX/scan-orchestrator/pkg/config"
	"github.com/LENAX/scan-orchestrator/pkg/pipeline"
)

// WorkflowHandler 工作流API处理器
type WorkflowHandler struct {
	registrar *pipeline.Registrar
	cfg       *config.EngineConfig
}

// NewWorkflowHandler 创建WorkflowHandler
func NewWorkflowHandler(registrar *pipeline.Registrar, cfg *config.EngineConfig) *WorkflowHandler {
	return &WorkflowHandler{registrar: registrar, cfg: cfg}
}

// List 列出流水线全部工作流
// GET /api/v1/workflows
func (h *WorkflowHandler) List(c *gin.Context) {
	specs, err := pipeline.AllSpecs(h.cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500,
			fmt.Sprintf("构建工作流定义失败: %v", err)))
		return
	}

	items := make([]dto.WorkflowSummary, 0, len(specs))
	for _, spec := range specs {
		items = append(items, dto.WorkflowSummary{
			Name:              spec.Name,
			TaskCount:         len(spec.Nodes),
			SpawnCount:        len(spec.Spawns),
			TaskTimeoutMS:     spec.TaskTimeoutMS,
			WorkflowTimeoutMS: spec.WorkflowTimeoutMS,
		})
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.WorkflowSummary]{
		Total: len(items),
		Items: items,
	}))
}

// StartRun 启动一次工作流运行
// POST /api/v1/workflows/:name/runs
func (h *WorkflowHandler) StartRun(c *gin.Context) {
	name := c.Param("name")
	if !isKnownWorkflow(name) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404,
			fmt.Sprintf("工作流 %s 不存在", name)))
		return
	}

	var req dto.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400,
			fmt.Sprintf("请求体无效: %v", err)))
		return
	}

	runID, err := h.registrar.Start(c.Request.Context(), name, req.Variables)
	if err != nil {
		// 变量缺失/未声明属于调用方错误，其余按引擎侧失败处理
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400,
			fmt.Sprintf("启动失败: %v", err)))
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.StartRunResponse{
		RunID:   runID,
		Message: fmt.Sprintf("工作流 %s 已启动", name),
	}))
}

// isKnownWorkflow 校验工作流名
func isKnownWorkflow(name string) bool {
	for _, known := range pipeline.AllWorkflowNames {
		if known == name {
			return true
		}
	}
	return false
}
