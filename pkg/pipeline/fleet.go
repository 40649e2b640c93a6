package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/LENAX/scan-orchestrator/pkg/core/task"
	"github.com/LENAX/scan-orchestrator/pkg/engine"
)

// Fleet 任务Worker编队（对外导出）
// 为流水线每个任务类型维护一个Worker，统一启动与停止
type Fleet struct {
	workers []engine.Worker
}

// NewFleet 为全部任务类型创建Worker编队
func NewFleet(client engine.Client, registry *task.Registry) (*Fleet, error) {
	workers := make([]engine.Worker, 0, len(task.AllTaskNames))
	for _, taskName := range task.AllTaskNames {
		worker, err := client.RegisterWorker(taskName, registry)
		if err != nil {
			return nil, fmt.Errorf("创建任务 %s 的Worker失败: %w", taskName, err)
		}
		workers = append(workers, worker)
	}
	return &Fleet{workers: workers}, nil
}

// Start 顺序启动全部Worker，任一失败立即中止
// 不允许部分任务类型无人认领地上线：失败时停掉已启动的Worker再传播错误
func (f *Fleet) Start(ctx context.Context) error {
	started := make([]engine.Worker, 0, len(f.workers))
	for _, worker := range f.workers {
		if err := worker.Start(ctx); err != nil {
			log.Printf("[pipeline] Worker %s 启动失败，回收已启动的%d个Worker",
				worker.TaskName(), len(started))
			for _, w := range started {
				if stopErr := w.Stop(ctx); stopErr != nil {
					log.Printf("[pipeline] 回收Worker %s 失败: %v", w.TaskName(), stopErr)
				}
			}
			return err
		}
		started = append(started, worker)
	}
	log.Printf("[pipeline] %d个任务Worker已全部启动", len(f.workers))
	return nil
}

// Stop 停止全部Worker，尽量全部停完后汇总首个错误
func (f *Fleet) Stop(ctx context.Context) error {
	var firstErr error
	for _, worker := range f.workers {
		if err := worker.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// TaskNames 返回编队负责的任务类型（按启动顺序）
func (f *Fleet) TaskNames() []string {
	names := make([]string, len(f.workers))
	for i, worker := range f.workers {
		names[i] = worker.TaskName()
	}
	return names
}
