package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/scan-orchestrator/pkg/config"
	"github.com/LENAX/scan-orchestrator/pkg/core/scheduler"
	"github.com/LENAX/scan-orchestrator/pkg/core/task"
	"github.com/LENAX/scan-orchestrator/pkg/engine"
	"github.com/LENAX/scan-orchestrator/pkg/engine/enginetest"
	"github.com/LENAX/scan-orchestrator/pkg/jobs"
	"github.com/LENAX/scan-orchestrator/pkg/pipeline"
	"github.com/LENAX/scan-orchestrator/pkg/storage"
	"github.com/LENAX/scan-orchestrator/pkg/storage/sqlite"
)

// recordingJobs 记录领域操作调用顺序的Mock，实现全部jobs接口
type recordingJobs struct {
	mu    sync.Mutex
	calls []string
}

func (j *recordingJobs) record(op string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, op)
}

func (j *recordingJobs) ops() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

func (j *recordingJobs) PerformScan(ctx context.Context, tenantID, scanID, providerID string, checks []string) (jobs.Result, error) {
	j.record("perform-scan")
	return jobs.Result{"scan_id": scanID, "checks": checks}, nil
}

func (j *recordingJobs) AggregateFindings(ctx context.Context, tenantID, scanID string) (jobs.Result, error) {
	j.record("aggregate-findings")
	return jobs.Result{}, nil
}

func (j *recordingJobs) CreateComplianceRequirements(ctx context.Context, tenantID, scanID string) (jobs.Result, error) {
	j.record("create-compliance-requirements")
	return jobs.Result{}, nil
}

func (j *recordingJobs) GenerateOutputs(ctx context.Context, tenantID, scanID, providerID string) (jobs.Result, error) {
	j.record("generate-outputs")
	return jobs.Result{"scan_id": scanID}, nil
}

func (j *recordingJobs) DeleteProvider(ctx context.Context, tenantID, providerID string) (jobs.Result, error) {
	j.record("delete-provider")
	return jobs.Result{}, nil
}

func (j *recordingJobs) DeleteTenant(ctx context.Context, tenantID string) (jobs.Result, error) {
	j.record("delete-tenant")
	return jobs.Result{}, nil
}

func (j *recordingJobs) CheckProviderConnection(ctx context.Context, providerID string) (jobs.Result, error) {
	j.record("check-provider-connection")
	return jobs.Result{"connected": true}, nil
}

func (j *recordingJobs) CheckLighthouseConnection(ctx context.Context, configID string) (jobs.Result, error) {
	j.record("check-lighthouse-connection")
	return jobs.Result{"connected": true}, nil
}

func (j *recordingJobs) BackfillResourceScanSummaries(ctx context.Context, tenantID, scanID string) (jobs.Result, error) {
	j.record("backfill-scan-resource-summaries")
	return jobs.Result{}, nil
}

// testEnv 流水线测试环境：引擎替身+真实Handler/去重器+sqlite存储
type testEnv struct {
	fake      *enginetest.Fake
	registrar *pipeline.Registrar
	fleet     *pipeline.Fleet
	store     *storage.Store
	jobs      *recordingJobs
	cfg       *config.EngineConfig
}

func setupPipeline(t *testing.T) *testEnv {
	dbFile := filepath.Join(t.TempDir(), "pipeline_test.db")
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", dbFile))
	require.NoError(t, err)
	store, err := storage.NewStore(db, sqlite.New(), 5)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	recorded := &recordingJobs{}
	handlers := &task.Handlers{
		Scans:       recorded,
		Deletions:   recorded,
		Connections: recorded,
		Backfills:   recorded,
		Dedup:       scheduler.NewDeduplicator(store, store),
	}
	registry := task.NewRegistry(nil)
	require.NoError(t, handlers.RegisterAll(registry))

	cfg := &config.EngineConfig{
		TaskTimeoutMS:     config.DefaultTaskTimeoutMS,
		WorkflowTimeoutMS: config.DefaultWorkflowTimeoutMS,
	}
	fake := enginetest.NewFake()
	fleet, err := pipeline.NewFleet(fake, registry)
	require.NoError(t, err)

	return &testEnv{
		fake:      fake,
		registrar: pipeline.NewRegistrar(fake, cfg, nil),
		fleet:     fleet,
		store:     store,
		jobs:      recorded,
		cfg:       cfg,
	}
}

// TestScanWorkflowOrdering 测试扫描工作流的执行顺序不变式
// perform-scan最先；两个聚合步骤在其后、generate-outputs之前；
// generate-outputs必须等两个聚合步骤都完成
func TestScanWorkflowOrdering(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()
	require.NoError(t, env.registrar.RegisterAll(ctx))
	require.NoError(t, env.fleet.Start(ctx))

	runID, err := env.registrar.Start(ctx, pipeline.WorkflowScan, map[string]any{
		"tenant_id":   "t1",
		"scan_id":     "s1",
		"provider_id": "p1",
	})
	require.NoError(t, err)

	ops := env.jobs.ops()
	require.Len(t, ops, 4)
	assert.Equal(t, "perform-scan", ops[0])
	assert.Equal(t, "generate-outputs", ops[3])
	assert.ElementsMatch(t,
		[]string{"aggregate-findings", "create-compliance-requirements"},
		ops[1:3])

	executions := env.fake.Executions(runID)
	require.Len(t, executions, 4)
	assert.Equal(t, "perform-scan", executions[0].TaskName)
	assert.Equal(t, "generate-outputs", executions[3].TaskName)
}

// TestRegisterAllIdempotent 测试重复注册：恰好4个工作流，重复发布不报错
func TestRegisterAllIdempotent(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()

	require.NoError(t, env.registrar.RegisterAll(ctx))
	require.NoError(t, env.registrar.RegisterAll(ctx))

	for _, name := range pipeline.AllWorkflowNames {
		assert.Equal(t, 2, env.fake.PublishCount(name), "工作流 %s", name)
		_, ok := env.fake.Spec(name)
		assert.True(t, ok)
	}
	assert.Len(t, pipeline.AllWorkflowNames, 4)
}

// TestFleetFailFast 测试Worker启动快速失败
// 第K个Worker注册失败时中止启动序列并回收已启动的Worker
func TestFleetFailFast(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()

	env.fake.FailWorkerStart(task.TaskSetupScheduledScan, errors.New("引擎拒绝注册"))

	err := env.fleet.Start(ctx)
	var regErr *engine.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, task.TaskSetupScheduledScan, regErr.TaskName)

	// setup-scheduled-scan之前的4个Worker曾启动，失败后全部回收
	started := env.fake.StartedWorkers()
	assert.Equal(t, task.AllTaskNames[:4], started)
}

// TestScheduledScanSpawnsMainThread 测试调度扫描工作流端到端
// setup完成后派发主扫描线程：scan_id来自setup输出，checks固定为空
func TestScheduledScanSpawnsMainThread(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()
	require.NoError(t, env.registrar.RegisterAll(ctx))
	require.NoError(t, env.fleet.Start(ctx))

	require.NoError(t, env.store.Save(ctx, &storage.PeriodicTask{
		TenantID: "t1",
		Name:     storage.SchedulerTaskName("p1"),
		CronExpr: "0 0 * * *",
		Enabled:  true,
	}))

	_, err := env.registrar.Start(ctx, pipeline.WorkflowScheduledScan, map[string]any{
		"tenant_id":   "t1",
		"provider_id": "p1",
	})
	require.NoError(t, err)

	runs := env.fake.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, pipeline.WorkflowScheduledScan, runs[0].WorkflowName)
	assert.Equal(t, pipeline.WorkflowScan, runs[1].WorkflowName)

	// 子运行变量来自setup输出与字面量绑定
	child := runs[1]
	assert.Equal(t, "t1", child.Vars["tenant_id"])
	assert.Equal(t, "p1", child.Vars["provider_id"])
	assert.NotEmpty(t, child.Vars["scan_id"])
	assert.Empty(t, child.Vars["checks_to_execute"])

	// setup创建的记录与子运行的scan_id一致
	scan, err := env.store.GetByID(ctx, "t1", child.Vars["scan_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, storage.StateScheduled, scan.State)

	// 主扫描线程完整执行了4步
	ops := env.jobs.ops()
	assert.Equal(t, 4, countOf(ops, "perform-scan")+countOf(ops, "aggregate-findings")+
		countOf(ops, "create-compliance-requirements")+countOf(ops, "generate-outputs"))
}

// TestScheduledScanDuplicateStillSpawns 测试去重命中后仍派发主线程
// duplicate是类型化结果而非错误：收敛到现有scan_id继续派发
func TestScheduledScanDuplicateStillSpawns(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()
	require.NoError(t, env.registrar.RegisterAll(ctx))
	require.NoError(t, env.fleet.Start(ctx))

	require.NoError(t, env.store.Save(ctx, &storage.PeriodicTask{
		TenantID: "t1",
		Name:     storage.SchedulerTaskName("p1"),
		CronExpr: "0 0 * * *",
		Enabled:  true,
	}))

	_, err := env.registrar.Start(ctx, pipeline.WorkflowScheduledScan, map[string]any{
		"tenant_id": "t1", "provider_id": "p1",
	})
	require.NoError(t, err)
	firstScanID := env.fake.Runs()[1].Vars["scan_id"].(string)

	// 第一次运行的扫描进入executing后再次触发
	require.NoError(t, env.store.UpdateState(ctx, "t1", firstScanID, storage.StateExecuting))

	_, err = env.registrar.Start(ctx, pipeline.WorkflowScheduledScan, map[string]any{
		"tenant_id": "t1", "provider_id": "p1",
	})
	require.NoError(t, err)

	runs := env.fake.Runs()
	require.Len(t, runs, 4)
	assert.Equal(t, firstScanID, runs[3].Vars["scan_id"])
}

// TestDeletionWorkflows 测试两个删除工作流
func TestDeletionWorkflows(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()
	require.NoError(t, env.registrar.RegisterAll(ctx))
	require.NoError(t, env.fleet.Start(ctx))

	_, err := env.registrar.Start(ctx, pipeline.WorkflowProviderDeletion, map[string]any{
		"tenant_id": "t1", "provider_id": "p1",
	})
	require.NoError(t, err)

	_, err = env.registrar.Start(ctx, pipeline.WorkflowTenantDeletion, map[string]any{
		"tenant_id": "t1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"delete-provider", "delete-tenant"}, env.jobs.ops())
}

// TestStartRejectsMissingVariable 测试缺少必填变量时启动失败
func TestStartRejectsMissingVariable(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()
	require.NoError(t, env.registrar.RegisterAll(ctx))
	require.NoError(t, env.fleet.Start(ctx))

	_, err := env.registrar.Start(ctx, pipeline.WorkflowScan, map[string]any{
		"tenant_id": "t1",
	})
	require.Error(t, err)
	assert.Empty(t, env.jobs.ops())
}

// countOf 统计元素出现次数
func countOf(items []string, target string) int {
	n := 0
	for _, item := range items {
		if item == target {
			n++
		}
	}
	return n
}
