package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LENAX/scan-orchestrator/pkg/config"
	"github.com/LENAX/scan-orchestrator/pkg/core/events"
	"github.com/LENAX/scan-orchestrator/pkg/engine"
)

// Registrar 工作流注册与启动入口（对外导出）
// 持有注入的引擎客户端，不依赖全局单例
type Registrar struct {
	client engine.Client
	cfg    *config.EngineConfig
	bus    *events.Bus // 可为nil（不发事件）
}

// NewRegistrar 创建注册器
func NewRegistrar(client engine.Client, cfg *config.EngineConfig, bus *events.Bus) *Registrar {
	return &Registrar{client: client, cfg: cfg, bus: bus}
}

// RegisterAll 向引擎发布流水线全部工作流定义
// 幂等：同名重复发布由引擎以覆盖语义处理，可在每次启动时无条件调用。
// 任一发布失败即中止并传播错误
func (r *Registrar) RegisterAll(ctx context.Context) error {
	specs, err := AllSpecs(r.cfg)
	if err != nil {
		return fmt.Errorf("构建工作流定义失败: %w", err)
	}
	for _, spec := range specs {
		if err := r.client.PublishWorkflow(ctx, spec); err != nil {
			return fmt.Errorf("发布工作流 %s 失败: %w", spec.Name, err)
		}
		log.Printf("[pipeline] 工作流 %s 已发布 (节点数=%d)", spec.Name, len(spec.Nodes))
	}
	return nil
}

// Start 按名称启动一次工作流运行
func (r *Registrar) Start(ctx context.Context, name string, vars map[string]any) (string, error) {
	runID, err := r.client.StartWorkflow(ctx, name, vars)
	if err != nil {
		return "", fmt.Errorf("启动工作流 %s 失败: %w", name, err)
	}
	log.Printf("[pipeline] 工作流 %s 已启动 run=%s", name, runID)

	if r.bus != nil {
		event := events.WorkflowStarted{WorkflowName: name, RunID: runID, At: time.Now().UTC()}
		if pubErr := r.bus.Publish(events.TopicWorkflowStarted, event); pubErr != nil {
			log.Printf("[pipeline] 发布启动事件失败: %v", pubErr)
		}
	}
	return runID, nil
}
