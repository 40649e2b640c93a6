package dto

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// WorkflowSummary 工作流摘要信息
type WorkflowSummary struct {
	Name              string `json:"name"`
	TaskCount         int    `json:"task_count"`
	SpawnCount        int    `json:"spawn_count,omitempty"`
	TaskTimeoutMS     int    `json:"task_timeout_ms"`
	WorkflowTimeoutMS int    `json:"workflow_timeout_ms"`
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}

// StartRunRequest 启动工作流运行请求
type StartRunRequest struct {
	Variables map[string]any `json:"variables"`
}

// StartRunResponse 启动工作流运行响应
type StartRunResponse struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}
