// Package logjobs 领域操作的日志占位实现：记录每次调用并返回最小结果。
// 实际扫描/合规/删除逻辑由接入方的领域服务提供，替换这里的装配即可。
package logjobs

import (
	"context"
	"log"

	"github.com/LENAX/scan-orchestrator/pkg/jobs"
)

// Jobs 日志占位实现（对外导出），实现全部领域操作接口
type Jobs struct{}

// New 创建占位实现
func New() *Jobs {
	return &Jobs{}
}

// PerformScan 执行扫描
func (j *Jobs) PerformScan(ctx context.Context, tenantID, scanID, providerID string, checks []string) (jobs.Result, error) {
	log.Printf("[jobs] perform-scan tenant=%s scan=%s provider=%s checks=%d",
		tenantID, scanID, providerID, len(checks))
	return jobs.Result{"scan_id": scanID}, nil
}

// AggregateFindings 聚合扫描发现
func (j *Jobs) AggregateFindings(ctx context.Context, tenantID, scanID string) (jobs.Result, error) {
	log.Printf("[jobs] aggregate-findings tenant=%s scan=%s", tenantID, scanID)
	return jobs.Result{"scan_id": scanID}, nil
}

// CreateComplianceRequirements 生成合规要求
func (j *Jobs) CreateComplianceRequirements(ctx context.Context, tenantID, scanID string) (jobs.Result, error) {
	log.Printf("[jobs] create-compliance-requirements tenant=%s scan=%s", tenantID, scanID)
	return jobs.Result{"scan_id": scanID}, nil
}

// GenerateOutputs 生成扫描输出
func (j *Jobs) GenerateOutputs(ctx context.Context, tenantID, scanID, providerID string) (jobs.Result, error) {
	log.Printf("[jobs] generate-outputs tenant=%s scan=%s provider=%s", tenantID, scanID, providerID)
	return jobs.Result{"scan_id": scanID}, nil
}

// DeleteProvider 删除Provider
func (j *Jobs) DeleteProvider(ctx context.Context, tenantID, providerID string) (jobs.Result, error) {
	log.Printf("[jobs] delete-provider tenant=%s provider=%s", tenantID, providerID)
	return jobs.Result{"provider_id": providerID}, nil
}

// DeleteTenant 删除租户
func (j *Jobs) DeleteTenant(ctx context.Context, tenantID string) (jobs.Result, error) {
	log.Printf("[jobs] delete-tenant tenant=%s", tenantID)
	return jobs.Result{"tenant_id": tenantID}, nil
}

// CheckProviderConnection 检查Provider连通性
func (j *Jobs) CheckProviderConnection(ctx context.Context, providerID string) (jobs.Result, error) {
	log.Printf("[jobs] check-provider-connection provider=%s", providerID)
	return jobs.Result{"connected": true}, nil
}

// CheckLighthouseConnection 检查Lighthouse配置连通性
func (j *Jobs) CheckLighthouseConnection(ctx context.Context, configID string) (jobs.Result, error) {
	log.Printf("[jobs] check-lighthouse-connection config=%s", configID)
	return jobs.Result{"connected": true}, nil
}

// BackfillResourceScanSummaries 回填扫描资源摘要
func (j *Jobs) BackfillResourceScanSummaries(ctx context.Context, tenantID, scanID string) (jobs.Result, error) {
	log.Printf("[jobs] backfill-scan-resource-summaries tenant=%s scan=%s", tenantID, scanID)
	return jobs.Result{"scan_id": scanID}, nil
}
