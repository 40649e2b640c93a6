// Package engine 外部工作流引擎客户端：发布工作流定义、启动运行、
// 注册任务Worker。引擎本身是黑盒，只通过其HTTP API交互。
package engine

import (
	"context"
	"fmt"

	"github.com/LENAX/scan-orchestrator/pkg/core/workflow"
	"github.com/LENAX/scan-orchestrator/pkg/jobs"
)

// RegistrationError Worker注册失败（对外导出）
// 启动序列遇到该错误必须快速失败，不允许部分任务类型无人认领地上线
type RegistrationError struct {
	TaskName string
	Err      error
}

// Error 实现error接口
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("注册任务 %s 的Worker失败: %v", e.TaskName, e.Err)
}

// Unwrap 返回底层错误
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Dispatcher 任务分发入口，由task.Registry实现
type Dispatcher interface {
	Dispatch(ctx context.Context, taskName, runID string, vars map[string]any) (jobs.Result, error)
}

// Client 工作流引擎客户端（对外导出）
// 调用方持有注入的实例，不依赖全局单例
type Client interface {
	// PublishWorkflow 发布工作流定义，幂等：同名重复发布由引擎覆盖
	PublishWorkflow(ctx context.Context, spec *workflow.Spec) error
	// StartWorkflow 按名称启动一次工作流运行，返回运行ID
	StartWorkflow(ctx context.Context, name string, vars map[string]any) (string, error)
	// RegisterWorker 为任务类型注册Worker，任务调用经dispatcher路由到Handler
	RegisterWorker(taskName string, dispatcher Dispatcher) (Worker, error)
}

// Worker 单个任务类型的认领执行循环（对外导出）
type Worker interface {
	// TaskName 返回负责的任务类型名
	TaskName() string
	// Start 开始认领任务；与引擎的初次握手失败时返回RegistrationError
	Start(ctx context.Context) error
	// Stop 停止认领并等待在途任务结束
	Stop(ctx context.Context) error
}
