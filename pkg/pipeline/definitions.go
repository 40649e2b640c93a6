// Package pipeline 扫描流水线：工作流定义、幂等注册与任务Worker编队。
package pipeline

import (
	"github.com/LENAX/scan-orchestrator/pkg/config"
	"github.com/LENAX/scan-orchestrator/pkg/core/task"
	"github.com/LENAX/scan-orchestrator/pkg/core/workflow"
)

// 工作流名称常量（对外导出）
const (
	WorkflowScan             = "scan"
	WorkflowScheduledScan    = "scheduled-scan"
	WorkflowProviderDeletion = "provider-deletion"
	WorkflowTenantDeletion   = "tenant-deletion"
)

// AllWorkflowNames 流水线全部工作流名（对外导出）
var AllWorkflowNames = []string{
	WorkflowScan,
	WorkflowScheduledScan,
	WorkflowProviderDeletion,
	WorkflowTenantDeletion,
}

// ScanSpec 扫描工作流定义
// 顺序：perform-scan -> (create-compliance-requirements ∥ aggregate-findings)
// -> 屏障 -> generate-outputs
func ScanSpec(cfg *config.EngineConfig) (*workflow.Spec, error) {
	b := workflow.NewSpecBuilder(WorkflowScan).
		WithTimeouts(cfg.TaskTimeoutMS, cfg.WorkflowTimeoutMS).
		AddVariable("tenant_id", workflow.VarStr).
		AddVariable("scan_id", workflow.VarStr).
		AddVariable("provider_id", workflow.VarStr).
		AddVariableWithDefault("checks_to_execute", workflow.VarJSON, []string{})

	b.ExecuteTask(task.TaskPerformScan,
		workflow.BindInput("tenant_id", "tenant_id"),
		workflow.BindInput("scan_id", "scan_id"),
		workflow.BindInput("provider_id", "provider_id"),
		workflow.BindInput("checks_to_execute", "checks_to_execute"),
	)

	// 两个聚合步骤只依赖扫描完成，彼此并行
	compliance := b.ExecuteTaskParallel(task.TaskCreateComplianceRequirements,
		workflow.BindInput("tenant_id", "tenant_id"),
		workflow.BindInput("scan_id", "scan_id"),
	)
	findings := b.ExecuteTaskParallel(task.TaskAggregateFindings,
		workflow.BindInput("tenant_id", "tenant_id"),
		workflow.BindInput("scan_id", "scan_id"),
	)

	// 输出生成必须等两个聚合步骤都完成
	b.WaitForTasks(compliance, findings).
		ExecuteTask(task.TaskGenerateOutputs,
			workflow.BindInput("tenant_id", "tenant_id"),
			workflow.BindInput("scan_id", "scan_id"),
			workflow.BindInput("provider_id", "provider_id"),
		)

	return b.Build()
}

// ScheduledScanSpec 调度扫描工作流定义
// setup-scheduled-scan准备（或去重复用）扫描记录后，以fire-and-forget方式
// 派发主扫描线程；本运行不消费子运行结果
func ScheduledScanSpec(cfg *config.EngineConfig) (*workflow.Spec, error) {
	b := workflow.NewSpecBuilder(WorkflowScheduledScan).
		WithTimeouts(cfg.TaskTimeoutMS, cfg.WorkflowTimeoutMS).
		AddVariable("tenant_id", workflow.VarStr).
		AddVariable("provider_id", workflow.VarStr)

	setup := b.ExecuteTask(task.TaskSetupScheduledScan,
		workflow.BindInput("tenant_id", "tenant_id"),
		workflow.BindInput("provider_id", "provider_id"),
	)

	// 调度扫描总是执行全部检查，checks列表固定为空（空表示全部）
	b.SpawnThread("main_scan_thread", WorkflowScan,
		workflow.BindInput("tenant_id", "tenant_id"),
		workflow.BindInput("provider_id", "provider_id"),
		workflow.BindOutput("scan_id", setup.Name(), "$.scan_id"),
		workflow.BindLiteral("checks_to_execute", []string{}),
	)

	return b.Build()
}

// ProviderDeletionSpec Provider删除工作流定义
func ProviderDeletionSpec(cfg *config.EngineConfig) (*workflow.Spec, error) {
	b := workflow.NewSpecBuilder(WorkflowProviderDeletion).
		WithTimeouts(cfg.TaskTimeoutMS, cfg.WorkflowTimeoutMS).
		AddVariable("tenant_id", workflow.VarStr).
		AddVariable("provider_id", workflow.VarStr)

	b.ExecuteTask(task.TaskDeleteProvider,
		workflow.BindInput("tenant_id", "tenant_id"),
		workflow.BindInput("provider_id", "provider_id"),
	)
	return b.Build()
}

// TenantDeletionSpec 租户删除工作流定义
func TenantDeletionSpec(cfg *config.EngineConfig) (*workflow.Spec, error) {
	b := workflow.NewSpecBuilder(WorkflowTenantDeletion).
		WithTimeouts(cfg.TaskTimeoutMS, cfg.WorkflowTimeoutMS).
		AddVariable("tenant_id", workflow.VarStr)

	b.ExecuteTask(task.TaskDeleteTenant,
		workflow.BindInput("tenant_id", "tenant_id"),
	)
	return b.Build()
}

// AllSpecs 构建流水线全部工作流定义
func AllSpecs(cfg *config.EngineConfig) ([]*workflow.Spec, error) {
	builders := []func(*config.EngineConfig) (*workflow.Spec, error){
		ScanSpec,
		ScheduledScanSpec,
		ProviderDeletionSpec,
		TenantDeletionSpec,
	}
	specs := make([]*workflow.Spec, 0, len(builders))
	for _, build := range builders {
		spec, err := build(cfg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
