// Package workflow 定义工作流规格模型：声明输入变量、任务节点、
// 并行等待屏障与子线程派发，由注册器发布到外部持久化执行引擎。
package workflow

// VarType 工作流变量类型（对外导出）
type VarType string

const (
	// VarStr 字符串变量
	VarStr VarType = "STR"
	// VarJSON JSON对象变量
	VarJSON VarType = "JSON_OBJ"
)

// Variable 工作流声明的输入变量（对外导出）
type Variable struct {
	Name       string  `json:"name"`
	Type       VarType `json:"type"`
	Default    any     `json:"default,omitempty"`
	HasDefault bool    `json:"has_default"`
}

// BindingSource 变量绑定来源（对外导出）
// 类型化绑定描述符在定义期即可静态校验
type BindingSource string

const (
	// SourceInput 绑定到工作流输入变量
	SourceInput BindingSource = "input"
	// SourceLiteral 绑定到字面值
	SourceLiteral BindingSource = "literal"
	// SourceOutput 绑定到上游节点输出的JSON路径投影
	SourceOutput BindingSource = "output"
)

// Binding 任务入参的变量绑定（对外导出）
type Binding struct {
	// Param 目标入参名
	Param  string        `json:"param"`
	Source BindingSource `json:"source"`

	// Input 来源为input时的工作流变量名
	Input string `json:"input,omitempty"`
	// Literal 来源为literal时的字面值
	Literal any `json:"literal,omitempty"`
	// Node/Path 来源为output时的上游节点名与JSON路径（如 $.scan_id）
	Node string `json:"node,omitempty"`
	Path string `json:"path,omitempty"`
}

// BindInput 绑定工作流输入变量
func BindInput(param, variable string) Binding {
	return Binding{Param: param, Source: SourceInput, Input: variable}
}

// BindLiteral 绑定字面值
func BindLiteral(param string, value any) Binding {
	return Binding{Param: param, Source: SourceLiteral, Literal: value}
}

// BindOutput 绑定上游节点输出的JSON路径投影
func BindOutput(param, node, path string) Binding {
	return Binding{Param: param, Source: SourceOutput, Node: node, Path: path}
}

// TaskNode 工作流步骤图中的单个任务调用（对外导出）
type TaskNode struct {
	// Name 节点名（规格内唯一）
	Name string `json:"name"`
	// TaskName 任务类型名（注册中心按此路由）
	TaskName string `json:"task_name"`
	// Bindings 入参绑定
	Bindings []Binding `json:"bindings,omitempty"`
	// DependsOn 前置节点名列表；全部完成后本节点才可执行
	DependsOn []string `json:"depends_on,omitempty"`
}

// ThreadSpawn 子线程派发：在父运行内启动另一个命名工作流（对外导出）
// 父运行只负责发起，不等待也不消费子运行结果
type ThreadSpawn struct {
	// ThreadName 线程名
	ThreadName string `json:"thread_name"`
	// WorkflowName 目标工作流名
	WorkflowName string `json:"workflow_name"`
	// Bindings 派生变量集
	Bindings []Binding `json:"bindings,omitempty"`
	// After 前置节点名列表
	After []string `json:"after,omitempty"`
}

// Spec 工作流定义（对外导出）
// 发布后不可变；同名重复发布由引擎以覆盖语义处理
type Spec struct {
	Name              string        `json:"name"`
	Variables         []Variable    `json:"variables"`
	Nodes             []TaskNode    `json:"nodes"`
	Spawns            []ThreadSpawn `json:"spawns,omitempty"`
	TaskTimeoutMS     int           `json:"task_timeout_ms,omitempty"`
	WorkflowTimeoutMS int           `json:"workflow_timeout_ms,omitempty"`
}

// Variable 按名称查找声明的变量
func (s *Spec) Variable(name string) (*Variable, bool) {
	for i := range s.Variables {
		if s.Variables[i].Name == name {
			return &s.Variables[i], true
		}
	}
	return nil, false
}

// Node 按名称查找节点
func (s *Spec) Node(name string) (*TaskNode, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].Name == name {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}
