package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDiamond 构建 菱形 步骤图: a → (b ∥ c) → 屏障 → d
func buildDiamond(t *testing.T) *Spec {
	b := NewSpecBuilder("diamond")
	b.AddVariable("tenant_id", VarStr)

	first := b.ExecuteTask("a", BindInput("tenant_id", "tenant_id"))
	left := b.ExecuteTaskParallel("b")
	right := b.ExecuteTaskParallel("c")
	b.WaitForTasks(left, right)
	b.ExecuteTask("d", BindOutput("result", first.Name(), "$"))

	spec, err := b.Build()
	require.NoError(t, err)
	return spec
}

// TestBuilderSequencing 测试顺序/并行/屏障的依赖关系
func TestBuilderSequencing(t *testing.T) {
	spec := buildDiamond(t)
	require.Len(t, spec.Nodes, 4)

	a, _ := spec.Node("a")
	assert.Empty(t, a.DependsOn)

	bNode, _ := spec.Node("b")
	cNode, _ := spec.Node("c")
	assert.Equal(t, []string{"a"}, bNode.DependsOn)
	assert.Equal(t, []string{"a"}, cNode.DependsOn)

	d, _ := spec.Node("d")
	assert.ElementsMatch(t, []string{"b", "c"}, d.DependsOn)
}

// TestTopologicalLevels 测试拓扑分层
func TestTopologicalLevels(t *testing.T) {
	spec := buildDiamond(t)

	levels, err := TopologicalLevels(spec)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"a"}, levels[0])
	assert.ElementsMatch(t, []string{"b", "c"}, levels[1])
	assert.Equal(t, []string{"d"}, levels[2])
}

// TestValidateAcceptsMultiNodeGraph 测试多节点步骤图校验通过
// 节点以名称区分，不同名节点不得被判为重复顶点
func TestValidateAcceptsMultiNodeGraph(t *testing.T) {
	require.NoError(t, Validate(buildDiamond(t)))

	flat := &Spec{
		Name: "flat",
		Nodes: []TaskNode{
			{Name: "perform-scan", TaskName: "perform-scan"},
			{Name: "create-compliance-requirements", TaskName: "create-compliance-requirements"},
			{Name: "aggregate-findings", TaskName: "aggregate-findings"},
		},
	}
	require.NoError(t, Validate(flat))
}

// TestValidateRejectsCycle 测试步骤图成环时报错
func TestValidateRejectsCycle(t *testing.T) {
	spec := &Spec{
		Name: "cyclic",
		Nodes: []TaskNode{
			{Name: "a", TaskName: "a", DependsOn: []string{"b"}},
			{Name: "b", TaskName: "b", DependsOn: []string{"a"}},
		},
	}
	require.Error(t, Validate(spec))
}

// TestValidateRejectsUnknownVariable 测试绑定未声明变量时报错
func TestValidateRejectsUnknownVariable(t *testing.T) {
	b := NewSpecBuilder("bad")
	b.ExecuteTask("a", BindInput("x", "missing"))

	_, err := b.Build()
	require.Error(t, err)
}

// TestValidateRejectsDuplicateVariable 测试变量重复声明
func TestValidateRejectsDuplicateVariable(t *testing.T) {
	b := NewSpecBuilder("bad")
	b.AddVariable("tenant_id", VarStr)
	b.AddVariable("tenant_id", VarStr)
	b.ExecuteTask("a")

	_, err := b.Build()
	require.Error(t, err)
}

// TestValidateRejectsUnknownDependency 测试依赖未定义节点
func TestValidateRejectsUnknownDependency(t *testing.T) {
	spec := &Spec{
		Name:  "bad",
		Nodes: []TaskNode{{Name: "a", TaskName: "a", DependsOn: []string{"ghost"}}},
	}
	require.Error(t, Validate(spec))
}

// TestSameTaskTwiceGetsUniqueNodeName 测试同一任务多次调用的节点命名
func TestSameTaskTwiceGetsUniqueNodeName(t *testing.T) {
	b := NewSpecBuilder("twice")
	first := b.ExecuteTask("a")
	second := b.ExecuteTask("a")

	assert.Equal(t, "a", first.Name())
	assert.Equal(t, "a-2", second.Name())
}

// TestResolveBindings 测试三种绑定来源的解析
func TestResolveBindings(t *testing.T) {
	bindings := []Binding{
		BindInput("tenant_id", "tenant_id"),
		BindLiteral("checks_to_execute", []string{}),
		BindOutput("scan_id", "setup", "$.scan_id"),
	}
	inputs := map[string]any{"tenant_id": "t1"}
	outputs := map[string]any{
		"setup": map[string]any{"scan_id": "s1", "duplicate": false},
	}

	vars, err := ResolveBindings(bindings, inputs, outputs)
	require.NoError(t, err)
	assert.Equal(t, "t1", vars["tenant_id"])
	assert.Equal(t, []string{}, vars["checks_to_execute"])
	assert.Equal(t, "s1", vars["scan_id"])
}

// TestResolveBindingsMissingOutput 测试上游输出缺失时报错
func TestResolveBindingsMissingOutput(t *testing.T) {
	_, err := ResolveBindings(
		[]Binding{BindOutput("scan_id", "setup", "$.scan_id")},
		map[string]any{},
		map[string]any{},
	)
	require.Error(t, err)
}

// TestProjectPath 测试JSON路径投影
func TestProjectPath(t *testing.T) {
	value := map[string]any{"a": map[string]any{"b": "deep"}}

	whole, err := ProjectPath(value, "$")
	require.NoError(t, err)
	assert.Equal(t, value, whole)

	deep, err := ProjectPath(value, "$.a.b")
	require.NoError(t, err)
	assert.Equal(t, "deep", deep)

	_, err = ProjectPath(value, "$.a.missing")
	require.Error(t, err)

	_, err = ProjectPath(value, "a.b")
	require.Error(t, err)
}

// TestDefaultInputs 测试默认值合并与未声明变量拒绝
func TestDefaultInputs(t *testing.T) {
	b := NewSpecBuilder("wf")
	b.AddVariable("tenant_id", VarStr)
	b.AddVariableWithDefault("checks_to_execute", VarJSON, []any{})
	b.ExecuteTask("a")
	spec, err := b.Build()
	require.NoError(t, err)

	inputs, err := DefaultInputs(spec, map[string]any{"tenant_id": "t1"})
	require.NoError(t, err)
	assert.Equal(t, "t1", inputs["tenant_id"])
	assert.Equal(t, []any{}, inputs["checks_to_execute"])

	// 缺少必填变量
	_, err = DefaultInputs(spec, map[string]any{})
	require.Error(t, err)

	// 未声明变量
	_, err = DefaultInputs(spec, map[string]any{"tenant_id": "t1", "bogus": 1})
	require.Error(t, err)
}
