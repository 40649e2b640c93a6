// Package jobs 定义扫描流水线各阶段的领域操作契约。
// 具体实现（扫描执行、发现聚合、合规评估、报告生成）由外部协作方提供，
// 本层只依赖签名契约，不关心内部逻辑。
package jobs

import "context"

// Result 领域操作的结果载荷（不透明结构化值）
type Result map[string]any

// ScanJobs 扫描相关领域操作（对外导出）
type ScanJobs interface {
	// PerformScan 执行扫描
	PerformScan(ctx context.Context, tenantID, scanID, providerID string, checksToExecute []string) (Result, error)
	// AggregateFindings 聚合扫描发现生成摘要
	AggregateFindings(ctx context.Context, tenantID, scanID string) (Result, error)
	// CreateComplianceRequirements 生成合规要求
	CreateComplianceRequirements(ctx context.Context, tenantID, scanID string) (Result, error)
	// GenerateOutputs 生成扫描输出产物
	GenerateOutputs(ctx context.Context, tenantID, scanID, providerID string) (Result, error)
}

// DeletionJobs 删除相关领域操作（对外导出）
type DeletionJobs interface {
	// DeleteProvider 删除Provider及其关联数据
	DeleteProvider(ctx context.Context, tenantID, providerID string) (Result, error)
	// DeleteTenant 删除租户及其全部数据
	DeleteTenant(ctx context.Context, tenantID string) (Result, error)
}

// ConnectionJobs 连接检查领域操作（对外导出）
type ConnectionJobs interface {
	// CheckProviderConnection 检查Provider连通性
	CheckProviderConnection(ctx context.Context, providerID string) (Result, error)
	// CheckLighthouseConnection 检查Lighthouse配置连通性
	CheckLighthouseConnection(ctx context.Context, lighthouseConfigID string) (Result, error)
}

// BackfillJobs 数据回填领域操作（对外导出）
type BackfillJobs interface {
	// BackfillResourceScanSummaries 回填扫描资源摘要
	BackfillResourceScanSummaries(ctx context.Context, tenantID, scanID string) (Result, error)
}
