package task

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/LENAX/scan-orchestrator/pkg/core/events"
	"github.com/LENAX/scan-orchestrator/pkg/jobs"
)

// Handler 任务处理函数（对外导出）
// 必须可安全地对同一逻辑步骤重复调用：引擎在Worker崩溃重启后会重新投递
type Handler func(ctx *Context) (jobs.Result, error)

// Registry 任务注册中心/分发器（对外导出）
// 无共享可变状态，可被多个Worker并发调用
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	bus      *events.Bus // 可为nil（不发事件）
}

// NewRegistry 创建任务注册中心（对外导出）
func NewRegistry(bus *events.Bus) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		bus:      bus,
	}
}

// Register 注册任务Handler
func (r *Registry) Register(taskName string, handler Handler) error {
	if taskName == "" {
		return fmt.Errorf("任务名不能为空")
	}
	if handler == nil {
		return fmt.Errorf("任务 %s 的Handler不能为nil", taskName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[taskName]; exists {
		return fmt.Errorf("任务 %s 已注册", taskName)
	}
	r.handlers[taskName] = handler
	return nil
}

// TaskNames 返回所有已注册的任务名
func (r *Registry) TaskNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Dispatch 将一次任务调用路由到对应Handler（对外导出）
// 失败绝不静默：带任务名记录日志后原样再信号给调用方（引擎），
// 由引擎将该步骤标记为失败
func (r *Registry) Dispatch(ctx context.Context, taskName, runID string, vars map[string]any) (jobs.Result, error) {
	r.mu.RLock()
	handler, ok := r.handlers[taskName]
	r.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("任务 %s 未注册", taskName)
		log.Printf("[dispatch] task=%s run=%s outcome=unknown-task", taskName, runID)
		return nil, err
	}

	start := time.Now()
	result, err := handler(NewContext(ctx, taskName, runID, vars))
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("[dispatch] task=%s run=%s outcome=failure duration=%s error=%v",
			taskName, runID, elapsed, err)
		r.publish(taskName, runID, "failure", err, elapsed)
		return nil, fmt.Errorf("任务 %s 执行失败: %w", taskName, err)
	}

	log.Printf("[dispatch] task=%s run=%s outcome=success duration=%s", taskName, runID, elapsed)
	r.publish(taskName, runID, "success", nil, elapsed)
	return result, nil
}

// publish 发布分发结果事件
func (r *Registry) publish(taskName, runID, outcome string, err error, elapsed time.Duration) {
	if r.bus == nil {
		return
	}
	event := events.TaskDispatched{
		TaskName:   taskName,
		RunID:      runID,
		Outcome:    outcome,
		DurationMS: elapsed.Milliseconds(),
		At:         time.Now().UTC(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	if pubErr := r.bus.Publish(events.TopicTaskDispatched, event); pubErr != nil {
		log.Printf("[dispatch] 发布事件失败: %v", pubErr)
	}
}
