// Package cmd scan-orchestrator命令行入口。
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// 全局变量
	configPath string
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "scan-orchestrator",
	Short: "Scan Orchestrator - 安全扫描流水线编排服务",
	Long: `Scan Orchestrator 负责安全扫描流水线的工作流编排与任务分发。

支持的功能：
  - 向工作流引擎发布流水线定义并启动任务Worker
  - 手动触发工作流运行（扫描、调度扫描、Provider/租户删除）
  - 查看流水线工作流定义

使用示例：
  # 注册工作流定义并启动全部Worker
  scan-orchestrator workers start

  # 只注册定义，不启动Worker
  scan-orchestrator workers start --register-only

  # 手动触发一次扫描
  scan-orchestrator workflow start scan --var tenant_id=t1 --var scan_id=s1 --var provider_id=p1`,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（可选，环境变量优先）")

	// 添加子命令
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(versionCmd)
}
