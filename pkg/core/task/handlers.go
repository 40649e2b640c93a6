package task

import (
	"github.com/LENAX/scan-orchestrator/pkg/core/scheduler"
	"github.com/LENAX/scan-orchestrator/pkg/jobs"
)

// 任务类型名常量（对外导出）
// 工作流定义与Worker注册共用，保持一致
const (
	TaskPerformScan                  = "perform-scan"
	TaskAggregateFindings            = "aggregate-findings"
	TaskCreateComplianceRequirements = "create-compliance-requirements"
	TaskGenerateOutputs              = "generate-outputs"
	TaskSetupScheduledScan           = "setup-scheduled-scan"
	TaskDeleteProvider               = "delete-provider"
	TaskDeleteTenant                 = "delete-tenant"
	TaskCheckProviderConnection      = "check-provider-connection"
	TaskCheckLighthouseConnection    = "check-lighthouse-connection"
	TaskBackfillScanSummaries        = "backfill-scan-resource-summaries"
)

// AllTaskNames 流水线全部任务类型（对外导出），Worker按此顺序启动
var AllTaskNames = []string{
	TaskPerformScan,
	TaskAggregateFindings,
	TaskCreateComplianceRequirements,
	TaskGenerateOutputs,
	TaskSetupScheduledScan,
	TaskDeleteProvider,
	TaskDeleteTenant,
	TaskCheckProviderConnection,
	TaskCheckLighthouseConnection,
	TaskBackfillScanSummaries,
}

// Handlers 流水线任务Handler集合（对外导出）
// 每个Handler都是薄适配层：读取声明的变量，调用恰好一个领域操作，
// 结果原样返回或将领域失败转换为传播的错误。
// 领域操作需保证幂等（或先经过去重器），以支持引擎崩溃后的重复投递
type Handlers struct {
	Scans       jobs.ScanJobs
	Deletions   jobs.DeletionJobs
	Connections jobs.ConnectionJobs
	Backfills   jobs.BackfillJobs
	Dedup       *scheduler.Deduplicator
}

// RegisterAll 将全部Handler注册到注册中心
func (h *Handlers) RegisterAll(r *Registry) error {
	handlers := map[string]Handler{
		TaskPerformScan:                  h.PerformScan,
		TaskAggregateFindings:            h.AggregateFindings,
		TaskCreateComplianceRequirements: h.CreateComplianceRequirements,
		TaskGenerateOutputs:              h.GenerateOutputs,
		TaskSetupScheduledScan:           h.SetupScheduledScan,
		TaskDeleteProvider:               h.DeleteProvider,
		TaskDeleteTenant:                 h.DeleteTenant,
		TaskCheckProviderConnection:      h.CheckProviderConnection,
		TaskCheckLighthouseConnection:    h.CheckLighthouseConnection,
		TaskBackfillScanSummaries:        h.BackfillScanSummaries,
	}
	for _, name := range AllTaskNames {
		if err := r.Register(name, handlers[name]); err != nil {
			return err
		}
	}
	return nil
}

// PerformScan 执行扫描
func (h *Handlers) PerformScan(ctx *Context) (jobs.Result, error) {
	tenantID, err := ctx.GetString("tenant_id")
	if err != nil {
		return nil, err
	}
	scanID, err := ctx.GetString("scan_id")
	if err != nil {
		return nil, err
	}
	providerID, err := ctx.GetString("provider_id")
	if err != nil {
		return nil, err
	}
	// 工作流声明了默认值，变量缺失时使用空列表而不报错
	checks := ctx.GetStringSliceDefault("checks_to_execute", []string{})

	return h.Scans.PerformScan(ctx.Context(), tenantID, scanID, providerID, checks)
}

// AggregateFindings 聚合扫描发现
func (h *Handlers) AggregateFindings(ctx *Context) (jobs.Result, error) {
	tenantID, err := ctx.GetString("tenant_id")
	if err != nil {
		return nil, err
	}
	scanID, err := ctx.GetString("scan_id")
	if err != nil {
		return nil, err
	}
	return h.Scans.AggregateFindings(ctx.Context(), tenantID, scanID)
}

// CreateComplianceRequirements 生成合规要求
func (h *Handlers) CreateComplianceRequirements(ctx *Context) (jobs.Result, error) {
	tenantID, err := ctx.GetString("tenant_id")
	if err != nil {
		return nil, err
	}
	scanID, err := ctx.GetString("scan_id")
	if err != nil {
		return nil, err
	}
	return h.Scans.CreateComplianceRequirements(ctx.Context(), tenantID, scanID)
}

// GenerateOutputs 生成扫描输出
// 与其他步骤走同一个分发模型
func (h *Handlers) GenerateOutputs(ctx *Context) (jobs.Result, error) {
	tenantID, err := ctx.GetString("tenant_id")
	if err != nil {
		return nil, err
	}
	scanID, err := ctx.GetString("scan_id")
	if err != nil {
		return nil, err
	}
	providerID, err := ctx.GetString("provider_id")
	if err != nil {
		return nil, err
	}
	return h.Scans.GenerateOutputs(ctx.Context(), tenantID, scanID, providerID)
}

// SetupScheduledScan 调度扫描准备（经过去重器）
func (h *Handlers) SetupScheduledScan(ctx *Context) (jobs.Result, error) {
	tenantID, err := ctx.GetString("tenant_id")
	if err != nil {
		return nil, err
	}
	providerID, err := ctx.GetString("provider_id")
	if err != nil {
		return nil, err
	}

	result, err := h.Dedup.SetupScheduledScan(ctx.Context(), tenantID, providerID)
	if err != nil {
		return nil, err
	}
	return result.Result(), nil
}

// DeleteProvider 删除Provider
func (h *Handlers) DeleteProvider(ctx *Context) (jobs.Result, error) {
	tenantID, err := ctx.GetString("tenant_id")
	if err != nil {
		return nil, err
	}
	providerID, err := ctx.GetString("provider_id")
	if err != nil {
		return nil, err
	}
	return h.Deletions.DeleteProvider(ctx.Context(), tenantID, providerID)
}

// DeleteTenant 删除租户
func (h *Handlers) DeleteTenant(ctx *Context) (jobs.Result, error) {
	tenantID, err := ctx.GetString("tenant_id")
	if err != nil {
		return nil, err
	}
	return h.Deletions.DeleteTenant(ctx.Context(), tenantID)
}

// CheckProviderConnection 检查Provider连通性
func (h *Handlers) CheckProviderConnection(ctx *Context) (jobs.Result, error) {
	providerID, err := ctx.GetString("provider_id")
	if err != nil {
		return nil, err
	}
	return h.Connections.CheckProviderConnection(ctx.Context(), providerID)
}

// CheckLighthouseConnection 检查Lighthouse配置连通性
func (h *Handlers) CheckLighthouseConnection(ctx *Context) (jobs.Result, error) {
	configID, err := ctx.GetString("lighthouse_config_id")
	if err != nil {
		return nil, err
	}
	return h.Connections.CheckLighthouseConnection(ctx.Context(), configID)
}

// BackfillScanSummaries 回填扫描资源摘要
func (h *Handlers) BackfillScanSummaries(ctx *Context) (jobs.Result, error) {
	tenantID, err := ctx.GetString("tenant_id")
	if err != nil {
		return nil, err
	}
	scanID, err := ctx.GetString("scan_id")
	if err != nil {
		return nil, err
	}
	return h.Backfills.BackfillResourceScanSummaries(ctx.Context(), tenantID, scanID)
}
