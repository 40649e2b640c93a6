package workflow

import "fmt"

// NodeRef 构建期的节点引用（对外导出）
type NodeRef struct {
	name string
}

// Name 返回节点名
func (r *NodeRef) Name() string {
	return r.name
}

// SpecBuilder 工作流规格构建器（链式构建，对外导出）
// 顺序语义：ExecuteTask依赖当前frontier并推进frontier；
// ExecuteTaskParallel依赖frontier但不推进；WaitForTasks将frontier重置为给定节点集，
// 形成并行完成屏障
type SpecBuilder struct {
	spec     *Spec
	frontier []string
	seq      map[string]int // 任务名 -> 出现次数，用于生成唯一节点名
}

// NewSpecBuilder 创建构建器（对外导出）
func NewSpecBuilder(name string) *SpecBuilder {
	return &SpecBuilder{
		spec: &Spec{Name: name},
		seq:  make(map[string]int),
	}
}

// WithTimeouts 设置任务/工作流超时（毫秒）
func (b *SpecBuilder) WithTimeouts(taskTimeoutMS, workflowTimeoutMS int) *SpecBuilder {
	b.spec.TaskTimeoutMS = taskTimeoutMS
	b.spec.WorkflowTimeoutMS = workflowTimeoutMS
	return b
}

// AddVariable 声明输入变量
func (b *SpecBuilder) AddVariable(name string, typ VarType) *SpecBuilder {
	b.spec.Variables = append(b.spec.Variables, Variable{Name: name, Type: typ})
	return b
}

// AddVariableWithDefault 声明带默认值的输入变量
func (b *SpecBuilder) AddVariableWithDefault(name string, typ VarType, def any) *SpecBuilder {
	b.spec.Variables = append(b.spec.Variables, Variable{
		Name: name, Type: typ, Default: def, HasDefault: true,
	})
	return b
}

// nodeName 生成唯一节点名（同一任务多次调用时追加序号）
func (b *SpecBuilder) nodeName(taskName string) string {
	b.seq[taskName]++
	if b.seq[taskName] == 1 {
		return taskName
	}
	return fmt.Sprintf("%s-%d", taskName, b.seq[taskName])
}

// addNode 追加节点
func (b *SpecBuilder) addNode(taskName string, deps []string, bindings []Binding) *NodeRef {
	name := b.nodeName(taskName)
	b.spec.Nodes = append(b.spec.Nodes, TaskNode{
		Name:      name,
		TaskName:  taskName,
		Bindings:  bindings,
		DependsOn: append([]string(nil), deps...),
	})
	return &NodeRef{name: name}
}

// ExecuteTask 顺序执行任务：依赖当前frontier，并成为新的frontier
func (b *SpecBuilder) ExecuteTask(taskName string, bindings ...Binding) *NodeRef {
	ref := b.addNode(taskName, b.frontier, bindings)
	b.frontier = []string{ref.name}
	return ref
}

// ExecuteTaskParallel 并行执行任务：依赖当前frontier，但不推进frontier
// 多个并行任务之间没有顺序保证
func (b *SpecBuilder) ExecuteTaskParallel(taskName string, bindings ...Binding) *NodeRef {
	return b.addNode(taskName, b.frontier, bindings)
}

// WaitForTasks 并行完成屏障：后续节点等待给定节点全部完成
func (b *SpecBuilder) WaitForTasks(refs ...*NodeRef) *SpecBuilder {
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.name
	}
	b.frontier = names
	return b
}

// SpawnThread 派发子线程：frontier全部完成后启动另一个命名工作流
// 父运行不等待子运行结果
func (b *SpecBuilder) SpawnThread(threadName, workflowName string, bindings ...Binding) *SpecBuilder {
	b.spec.Spawns = append(b.spec.Spawns, ThreadSpawn{
		ThreadName:   threadName,
		WorkflowName: workflowName,
		Bindings:     bindings,
		After:        append([]string(nil), b.frontier...),
	})
	return b
}

// Build 校验并返回规格
func (b *SpecBuilder) Build() (*Spec, error) {
	if err := Validate(b.spec); err != nil {
		return nil, err
	}
	return b.spec, nil
}
