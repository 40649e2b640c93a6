package workflow

import (
	"fmt"
	"strings"
)

// ResolveBindings 解析节点入参绑定，生成任务调用的变量集
// inputs: 工作流输入变量快照
// outputs: 已完成节点的输出（节点名 -> 输出值）
func ResolveBindings(bindings []Binding, inputs map[string]any, outputs map[string]any) (map[string]any, error) {
	vars := make(map[string]any, len(bindings))
	for _, binding := range bindings {
		switch binding.Source {
		case SourceInput:
			value, ok := inputs[binding.Input]
			if !ok {
				return nil, fmt.Errorf("工作流输入变量 %s 不存在", binding.Input)
			}
			vars[binding.Param] = value
		case SourceLiteral:
			vars[binding.Param] = binding.Literal
		case SourceOutput:
			output, ok := outputs[binding.Node]
			if !ok {
				return nil, fmt.Errorf("上游节点 %s 的输出不存在", binding.Node)
			}
			value, err := ProjectPath(output, binding.Path)
			if err != nil {
				return nil, fmt.Errorf("投影节点 %s 输出失败: %w", binding.Node, err)
			}
			vars[binding.Param] = value
		default:
			return nil, fmt.Errorf("未知的绑定来源: %s", binding.Source)
		}
	}
	return vars, nil
}

// ProjectPath 对值执行JSON路径投影
// 支持 "$"（整体）与 "$.a.b"（按键逐层取值）两种形式
func ProjectPath(value any, path string) (any, error) {
	if path == "" || path == "$" {
		return value, nil
	}
	if !strings.HasPrefix(path, "$.") {
		return nil, fmt.Errorf("无效的JSON路径: %s", path)
	}

	current := value
	for _, key := range strings.Split(strings.TrimPrefix(path, "$."), ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("路径 %s 中 %s 处不是对象", path, key)
		}
		current, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("路径 %s 中键 %s 不存在", path, key)
		}
	}
	return current, nil
}

// DefaultInputs 将声明的默认值合并进输入变量集
// 未提供且有默认值的变量使用默认值；未提供且无默认值的变量报错
func DefaultInputs(spec *Spec, provided map[string]any) (map[string]any, error) {
	inputs := make(map[string]any, len(spec.Variables))
	for _, v := range spec.Variables {
		if value, ok := provided[v.Name]; ok {
			inputs[v.Name] = value
			continue
		}
		if v.HasDefault {
			inputs[v.Name] = v.Default
			continue
		}
		return nil, fmt.Errorf("缺少工作流输入变量: %s", v.Name)
	}

	// 拒绝未声明的变量
	for name := range provided {
		if _, ok := spec.Variable(name); !ok {
			return nil, fmt.Errorf("未声明的工作流输入变量: %s", name)
		}
	}
	return inputs, nil
}
