package main

import (
	"github.com/LENAX/scan-orchestrator/pkg/cli/cmd"
)

// scan-orchestrator入口：工作流编排与任务Worker管理
func main() {
	cmd.Execute()
}
