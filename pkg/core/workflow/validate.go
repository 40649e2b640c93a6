package workflow

import (
	"fmt"

	dag "github.com/begmaroman/go-dag"
)

// specNode go-dag节点适配
// 字段必须导出：go-dag默认按JSON序列化结果做顶点哈希，
// 未导出字段会让所有顶点哈希相同而被判为重复
type specNode struct {
	NodeID string
}

// ID 实现go-dag的Identifiable接口
func (n *specNode) ID() string {
	return n.NodeID
}

// Validate 校验工作流规格（对外导出）
// 规则：名称非空、变量/节点名唯一、绑定只引用已声明变量或已有节点、步骤图无环
func Validate(spec *Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("工作流名称不能为空")
	}

	seenVars := make(map[string]bool, len(spec.Variables))
	for _, v := range spec.Variables {
		if v.Name == "" {
			return fmt.Errorf("工作流 %s: 变量名不能为空", spec.Name)
		}
		if seenVars[v.Name] {
			return fmt.Errorf("工作流 %s: 变量 %s 重复声明", spec.Name, v.Name)
		}
		seenVars[v.Name] = true
	}

	seenNodes := make(map[string]bool, len(spec.Nodes))
	for _, node := range spec.Nodes {
		if node.TaskName == "" {
			return fmt.Errorf("工作流 %s: 节点 %s 缺少任务名", spec.Name, node.Name)
		}
		if seenNodes[node.Name] {
			return fmt.Errorf("工作流 %s: 节点 %s 重复", spec.Name, node.Name)
		}
		seenNodes[node.Name] = true
	}

	// 绑定与依赖引用校验
	for _, node := range spec.Nodes {
		for _, dep := range node.DependsOn {
			if !seenNodes[dep] {
				return fmt.Errorf("工作流 %s: 节点 %s 依赖未定义的节点 %s", spec.Name, node.Name, dep)
			}
		}
		if err := validateBindings(spec, node.Name, node.Bindings, seenVars, seenNodes); err != nil {
			return err
		}
	}
	for _, spawn := range spec.Spawns {
		for _, dep := range spawn.After {
			if !seenNodes[dep] {
				return fmt.Errorf("工作流 %s: 线程 %s 依赖未定义的节点 %s", spec.Name, spawn.ThreadName, dep)
			}
		}
		if err := validateBindings(spec, spawn.ThreadName, spawn.Bindings, seenVars, seenNodes); err != nil {
			return err
		}
	}

	// 步骤图无环校验：go-dag在AddEdge时拒绝成环的边
	graph := dag.NewDAG[*specNode]()
	for _, node := range spec.Nodes {
		if _, err := graph.AddVertex(&specNode{NodeID: node.Name}); err != nil {
			return fmt.Errorf("工作流 %s: 构建步骤图失败: %w", spec.Name, err)
		}
	}
	for _, node := range spec.Nodes {
		for _, dep := range node.DependsOn {
			if err := graph.AddEdge(dep, node.Name); err != nil {
				return fmt.Errorf("工作流 %s: 步骤图存在环或非法依赖 %s -> %s: %w",
					spec.Name, dep, node.Name, err)
			}
		}
	}

	return nil
}

// validateBindings 校验绑定引用
func validateBindings(spec *Spec, owner string, bindings []Binding, vars, nodes map[string]bool) error {
	for _, binding := range bindings {
		if binding.Param == "" {
			return fmt.Errorf("工作流 %s: %s 存在缺少入参名的绑定", spec.Name, owner)
		}
		switch binding.Source {
		case SourceInput:
			if !vars[binding.Input] {
				return fmt.Errorf("工作流 %s: %s 绑定了未声明的变量 %s", spec.Name, owner, binding.Input)
			}
		case SourceOutput:
			if !nodes[binding.Node] {
				return fmt.Errorf("工作流 %s: %s 绑定了未定义节点 %s 的输出", spec.Name, owner, binding.Node)
			}
		case SourceLiteral:
		default:
			return fmt.Errorf("工作流 %s: %s 存在未知绑定来源 %s", spec.Name, owner, binding.Source)
		}
	}
	return nil
}

// TopologicalLevels 返回步骤图的拓扑分层（对外导出）
// 同层节点之间无依赖关系，可以并行执行
func TopologicalLevels(spec *Spec) ([][]string, error) {
	indegree := make(map[string]int, len(spec.Nodes))
	children := make(map[string][]string, len(spec.Nodes))
	for _, node := range spec.Nodes {
		indegree[node.Name] = len(node.DependsOn)
		for _, dep := range node.DependsOn {
			children[dep] = append(children[dep], node.Name)
		}
	}

	var levels [][]string
	remaining := len(spec.Nodes)
	for remaining > 0 {
		var level []string
		for _, node := range spec.Nodes {
			if indegree[node.Name] == 0 {
				level = append(level, node.Name)
			}
		}
		if len(level) == 0 {
			return nil, fmt.Errorf("工作流 %s: 步骤图存在环", spec.Name)
		}
		for _, name := range level {
			indegree[name] = -1
			remaining--
			for _, child := range children[name] {
				indegree[child]--
			}
		}
		levels = append(levels, level)
	}
	return levels, nil
}
