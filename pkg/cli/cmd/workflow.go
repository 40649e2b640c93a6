package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LENAX/scan-orchestrator/pkg/cli/output"
	"github.com/LENAX/scan-orchestrator/pkg/config"
	"github.com/LENAX/scan-orchestrator/pkg/engine"
	"github.com/LENAX/scan-orchestrator/pkg/pipeline"
)

var (
	workflowVars     []string
	workflowJSONVars []string
)

// workflowCmd workflow子命令
var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "工作流管理命令",
	Long:  `管理扫描流水线的工作流。`,
}

// workflowListCmd 列出工作流
var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出流水线全部工作流定义",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}

		specs, err := pipeline.AllSpecs(&cfg.Engine)
		if err != nil {
			output.Error("构建工作流定义失败: %v", err)
			return err
		}

		table := output.NewTable([]string{"NAME", "TASKS", "SPAWNS", "TASK TIMEOUT", "WORKFLOW TIMEOUT"})
		for _, spec := range specs {
			table.AddRow([]string{
				spec.Name,
				fmt.Sprintf("%d", len(spec.Nodes)),
				fmt.Sprintf("%d", len(spec.Spawns)),
				(time.Duration(spec.TaskTimeoutMS) * time.Millisecond).String(),
				(time.Duration(spec.WorkflowTimeoutMS) * time.Millisecond).String(),
			})
		}
		table.Render()
		return nil
	},
}

// workflowStartCmd 启动工作流运行
var workflowStartCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "启动一次工作流运行",
	Long: `按名称启动一次工作流运行并打印运行ID。

示例：
  # 手动触发一次扫描
  scan-orchestrator workflow start scan \
    --var tenant_id=t1 --var scan_id=s1 --var provider_id=p1 \
    --json-var 'checks_to_execute=["check_a","check_b"]'

  # 触发Provider删除
  scan-orchestrator workflow start provider-deletion --var tenant_id=t1 --var provider_id=p1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg, err := config.Load(configPath)
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}

		vars, err := parseVars(workflowVars, workflowJSONVars)
		if err != nil {
			output.Error("解析变量失败: %v", err)
			return err
		}

		client, err := engine.NewHTTPClient(&cfg.Engine)
		if err != nil {
			output.Error("创建引擎客户端失败: %v", err)
			return err
		}

		registrar := pipeline.NewRegistrar(client, &cfg.Engine, nil)
		runID, err := registrar.Start(context.Background(), name, vars)
		if err != nil {
			output.Error("启动工作流失败: %v", err)
			return err
		}

		output.Success("工作流 %s 已启动", name)
		fmt.Printf("Run ID: %s\n", runID)
		return nil
	},
}

// parseVars 解析 --var k=v 与 --json-var k=json 变量
func parseVars(plain, jsonVars []string) (map[string]any, error) {
	vars := make(map[string]any, len(plain)+len(jsonVars))
	for _, kv := range plain {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("变量格式应为 k=v: %s", kv)
		}
		vars[key] = value
	}
	for _, kv := range jsonVars {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("变量格式应为 k=json: %s", kv)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("变量 %s 不是有效JSON: %w", key, err)
		}
		vars[key] = value
	}
	return vars, nil
}

func init() {
	workflowStartCmd.Flags().StringArrayVar(&workflowVars, "var", nil, "工作流输入变量（k=v，可重复）")
	workflowStartCmd.Flags().StringArrayVar(&workflowJSONVars, "json-var", nil, "JSON格式的输入变量（k=json，可重复）")
	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowStartCmd)
}
