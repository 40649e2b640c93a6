// Package enginetest 进程内引擎替身：按拓扑分层解释执行已发布的工作流，
// 同层节点真实并发，用于验证编排顺序、屏障与子线程派发。
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/LENAX/scan-orchestrator/pkg/core/workflow"
	"github.com/LENAX/scan-orchestrator/pkg/engine"
)

// Execution 一次节点执行记录（对外导出）
type Execution struct {
	RunID    string
	NodeName string
	TaskName string
}

// Run 一次工作流运行记录（对外导出）
type Run struct {
	RunID        string
	WorkflowName string
	Vars         map[string]any
}

// Fake 进程内引擎替身（对外导出）
// 与真实引擎不同，StartWorkflow同步执行到运行结束，便于测试断言
type Fake struct {
	mu           sync.Mutex
	specs        map[string]*workflow.Spec
	publishCount map[string]int
	dispatchers  map[string]engine.Dispatcher
	startErrs    map[string]error
	started      []string
	runs         []Run
	executions   []Execution
	runSeq       int
}

// NewFake 创建引擎替身
func NewFake() *Fake {
	return &Fake{
		specs:        make(map[string]*workflow.Spec),
		publishCount: make(map[string]int),
		dispatchers:  make(map[string]engine.Dispatcher),
		startErrs:    make(map[string]error),
	}
}

// FailWorkerStart 注入指定任务Worker的启动失败
func (f *Fake) FailWorkerStart(taskName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErrs[taskName] = err
}

// PublishWorkflow 记录发布的工作流定义，覆盖同名定义
func (f *Fake) PublishWorkflow(ctx context.Context, spec *workflow.Spec) error {
	if err := workflow.Validate(spec); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs[spec.Name] = spec
	f.publishCount[spec.Name]++
	return nil
}

// StartWorkflow 同步执行一次工作流运行
func (f *Fake) StartWorkflow(ctx context.Context, name string, vars map[string]any) (string, error) {
	f.mu.Lock()
	spec, ok := f.specs[name]
	if !ok {
		f.mu.Unlock()
		return "", fmt.Errorf("工作流 %s 未发布", name)
	}
	f.runSeq++
	runID := fmt.Sprintf("run-%d", f.runSeq)
	f.mu.Unlock()

	inputs, err := workflow.DefaultInputs(spec, vars)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.runs = append(f.runs, Run{RunID: runID, WorkflowName: name, Vars: inputs})
	f.mu.Unlock()

	if err := f.executeRun(ctx, spec, runID, inputs); err != nil {
		return runID, err
	}
	return runID, nil
}

// executeRun 按拓扑分层执行全部节点，随后处理子线程派发
func (f *Fake) executeRun(ctx context.Context, spec *workflow.Spec, runID string, inputs map[string]any) error {
	levels, err := workflow.TopologicalLevels(spec)
	if err != nil {
		return err
	}

	outputs := make(map[string]any, len(spec.Nodes))
	var outputsMu sync.Mutex

	for _, level := range levels {
		var wg sync.WaitGroup
		errs := make([]error, len(level))
		for i, nodeName := range level {
			node, _ := spec.Node(nodeName)
			wg.Add(1)
			go func(i int, node *workflow.TaskNode) {
				defer wg.Done()

				outputsMu.Lock()
				vars, err := workflow.ResolveBindings(node.Bindings, inputs, outputs)
				outputsMu.Unlock()
				if err != nil {
					errs[i] = err
					return
				}

				f.mu.Lock()
				dispatcher, ok := f.dispatchers[node.TaskName]
				f.mu.Unlock()
				if !ok {
					errs[i] = fmt.Errorf("任务 %s 没有已注册的Worker", node.TaskName)
					return
				}

				result, err := dispatcher.Dispatch(ctx, node.TaskName, runID, vars)
				if err != nil {
					errs[i] = err
					return
				}

				outputsMu.Lock()
				outputs[node.Name] = map[string]any(result)
				outputsMu.Unlock()

				f.mu.Lock()
				f.executions = append(f.executions, Execution{
					RunID:    runID,
					NodeName: node.Name,
					TaskName: node.TaskName,
				})
				f.mu.Unlock()
			}(i, node)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return fmt.Errorf("运行 %s 失败: %w", runID, err)
			}
		}
	}

	// 子线程派发：前置节点全部完成后发起，不等待子运行结果
	for _, spawn := range spec.Spawns {
		vars, err := workflow.ResolveBindings(spawn.Bindings, inputs, outputs)
		if err != nil {
			return fmt.Errorf("运行 %s 派发线程 %s 失败: %w", runID, spawn.ThreadName, err)
		}
		if _, err := f.StartWorkflow(ctx, spawn.WorkflowName, vars); err != nil {
			return fmt.Errorf("运行 %s 派发线程 %s 失败: %w", runID, spawn.ThreadName, err)
		}
	}
	return nil
}

// RegisterWorker 创建替身Worker
func (f *Fake) RegisterWorker(taskName string, dispatcher engine.Dispatcher) (engine.Worker, error) {
	if taskName == "" {
		return nil, fmt.Errorf("任务名不能为空")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("任务 %s 缺少分发器", taskName)
	}
	return &fakeWorker{fake: f, taskName: taskName, dispatcher: dispatcher}, nil
}

// PublishCount 返回工作流的发布次数
func (f *Fake) PublishCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.publishCount[name]
}

// Spec 返回已发布的工作流定义
func (f *Fake) Spec(name string) (*workflow.Spec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	spec, ok := f.specs[name]
	return spec, ok
}

// Runs 返回全部运行记录
func (f *Fake) Runs() []Run {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Run(nil), f.runs...)
}

// Executions 返回指定运行的节点执行记录（按完成顺序）
func (f *Fake) Executions(runID string) []Execution {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []Execution
	for _, e := range f.executions {
		if e.RunID == runID {
			result = append(result, e)
		}
	}
	return result
}

// StartedWorkers 返回Worker启动顺序
func (f *Fake) StartedWorkers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

// fakeWorker 替身Worker：启动时登记任务分发器
type fakeWorker struct {
	fake       *Fake
	taskName   string
	dispatcher engine.Dispatcher
}

// TaskName 返回负责的任务类型名
func (w *fakeWorker) TaskName() string {
	return w.taskName
}

// Start 登记分发器；注入了启动失败时返回RegistrationError
func (w *fakeWorker) Start(ctx context.Context) error {
	w.fake.mu.Lock()
	defer w.fake.mu.Unlock()
	if err := w.fake.startErrs[w.taskName]; err != nil {
		return &engine.RegistrationError{TaskName: w.taskName, Err: err}
	}
	w.fake.dispatchers[w.taskName] = w.dispatcher
	w.fake.started = append(w.fake.started, w.taskName)
	return nil
}

// Stop 注销分发器
func (w *fakeWorker) Stop(ctx context.Context) error {
	w.fake.mu.Lock()
	defer w.fake.mu.Unlock()
	delete(w.fake.dispatchers, w.taskName)
	return nil
}
