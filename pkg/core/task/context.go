// Package task 任务注册中心与分发器：按任务名路由到Handler，
// 负责变量编组、结果回传与失败再信号。
package task

import (
	"context"
	"fmt"
)

// Context 任务执行上下文，提供类型安全的变量访问（对外导出）
// 变量来自所属工作流运行的变量空间快照
type Context struct {
	ctx      context.Context
	TaskName string // 任务类型名
	RunID    string // 所属工作流运行ID
	vars     map[string]any
}

// NewContext 创建任务执行上下文（对外导出）
func NewContext(ctx context.Context, taskName, runID string, vars map[string]any) *Context {
	if vars == nil {
		vars = map[string]any{}
	}
	return &Context{ctx: ctx, TaskName: taskName, RunID: runID, vars: vars}
}

// Context 返回底层context.Context，用于超时、取消传递
func (c *Context) Context() context.Context {
	return c.ctx
}

// Get 获取原始变量值
func (c *Context) Get(name string) (any, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// GetString 获取字符串变量；变量不存在时报错
func (c *Context) GetString(name string) (string, error) {
	v, ok := c.vars[name]
	if !ok {
		return "", fmt.Errorf("变量 %s 不存在", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("变量 %s 不是字符串，当前类型: %T", name, v)
	}
	return s, nil
}

// GetStringDefault 获取字符串变量；变量不存在时返回默认值，不报错
func (c *Context) GetStringDefault(name, def string) string {
	v, ok := c.vars[name]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// GetStringSlice 获取字符串列表变量；变量不存在时报错
// JSON反序列化后的[]any逐项转换
func (c *Context) GetStringSlice(name string) ([]string, error) {
	v, ok := c.vars[name]
	if !ok {
		return nil, fmt.Errorf("变量 %s 不存在", name)
	}
	return toStringSlice(name, v)
}

// GetStringSliceDefault 获取字符串列表变量；变量不存在时返回默认值，不报错
func (c *Context) GetStringSliceDefault(name string, def []string) []string {
	v, ok := c.vars[name]
	if !ok {
		return def
	}
	s, err := toStringSlice(name, v)
	if err != nil {
		return def
	}
	return s
}

// toStringSlice 将变量值转换为字符串列表
func toStringSlice(name string, v any) ([]string, error) {
	switch items := v.(type) {
	case []string:
		return items, nil
	case []any:
		result := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("变量 %s 包含非字符串元素: %T", name, item)
			}
			result = append(result, s)
		}
		return result, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("变量 %s 不是列表，当前类型: %T", name, v)
	}
}
