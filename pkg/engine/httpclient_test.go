package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/scan-orchestrator/pkg/config"
	"github.com/LENAX/scan-orchestrator/pkg/core/workflow"
	"github.com/LENAX/scan-orchestrator/pkg/engine"
	"github.com/LENAX/scan-orchestrator/pkg/jobs"
)

// fakeEngineServer 模拟引擎HTTP API
type fakeEngineServer struct {
	mu         sync.Mutex
	published  []string // 收到的工作流名
	claims     []map[string]any
	results    []map[string]any
	registered []string
}

func (s *fakeEngineServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		var spec workflow.Spec
		_ = json.NewDecoder(r.Body).Decode(&spec)
		s.mu.Lock()
		s.published = append(s.published, spec.Name)
		s.mu.Unlock()
		writeEnvelope(w, 0, "", nil)
	})

	mux.HandleFunc("POST /api/v1/workflows/{name}/runs", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 0, "", map[string]any{"run_id": "run-42"})
	})

	mux.HandleFunc("POST /api/v1/workers", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.registered = append(s.registered, req["task_name"].(string))
		s.mu.Unlock()
		writeEnvelope(w, 0, "", nil)
	})

	mux.HandleFunc("POST /api/v1/tasks/{task}/claims", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if len(s.claims) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		claim := s.claims[0]
		s.claims = s.claims[1:]
		writeEnvelope(w, 0, "", claim)
	})

	mux.HandleFunc("POST /api/v1/claims/{id}/result", func(w http.ResponseWriter, r *http.Request) {
		var result map[string]any
		_ = json.NewDecoder(r.Body).Decode(&result)
		result["claim_id"] = r.PathValue("id")
		s.mu.Lock()
		s.results = append(s.results, result)
		s.mu.Unlock()
		writeEnvelope(w, 0, "", nil)
	})

	return mux
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
		"data":    data,
	})
}

// newTestClient 对指向httptest服务器的客户端
func newTestClient(t *testing.T, server *httptest.Server) *engine.HTTPClient {
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	client, err := engine.NewHTTPClient(&config.EngineConfig{
		Host:              u.Hostname(),
		Port:              port,
		TaskTimeoutMS:     60000,
		WorkflowTimeoutMS: 120000,
	})
	require.NoError(t, err)
	return client
}

// TestPublishWorkflow 测试工作流发布
func TestPublishWorkflow(t *testing.T) {
	fake := &fakeEngineServer{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()
	client := newTestClient(t, server)

	spec := &workflow.Spec{
		Name:  "provider-deletion",
		Nodes: []workflow.TaskNode{{Name: "delete-provider", TaskName: "delete-provider"}},
	}
	require.NoError(t, client.PublishWorkflow(context.Background(), spec))
	assert.Equal(t, []string{"provider-deletion"}, fake.published)
}

// TestPublishWorkflowRejectsInvalidSpec 测试非法定义在发布前被拒绝
func TestPublishWorkflowRejectsInvalidSpec(t *testing.T) {
	fake := &fakeEngineServer{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()
	client := newTestClient(t, server)

	// 缺少任务名的节点
	spec := &workflow.Spec{
		Name:  "broken",
		Nodes: []workflow.TaskNode{{Name: "n1"}},
	}
	require.Error(t, client.PublishWorkflow(context.Background(), spec))
	assert.Empty(t, fake.published)
}

// TestStartWorkflow 测试启动运行返回运行ID
func TestStartWorkflow(t *testing.T) {
	fake := &fakeEngineServer{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()
	client := newTestClient(t, server)

	runID, err := client.StartWorkflow(context.Background(), "scan",
		map[string]any{"tenant_id": "t1"})
	require.NoError(t, err)
	assert.Equal(t, "run-42", runID)
}

// recordingDispatcher 记录分发调用
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, taskName, runID string, vars map[string]any) (jobs.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, taskName+"/"+runID)
	return jobs.Result{"done": true}, nil
}

// TestWorkerClaimLoop 测试Worker认领、执行并回报结果
func TestWorkerClaimLoop(t *testing.T) {
	fake := &fakeEngineServer{
		claims: []map[string]any{{
			"claim_id":  "c1",
			"run_id":    "run-1",
			"variables": map[string]any{"tenant_id": "t1"},
		}},
	}
	server := httptest.NewServer(fake.handler())
	defer server.Close()
	client := newTestClient(t, server)

	dispatcher := &recordingDispatcher{}
	worker, err := client.RegisterWorker("perform-scan", dispatcher)
	require.NoError(t, err)
	require.NoError(t, worker.Start(context.Background()))

	// 等待认领循环消费掉唯一的claim
	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return len(fake.results) == 1
	}, 5*time.Second, 20*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, worker.Stop(stopCtx))

	assert.Equal(t, []string{"perform-scan/run-1"}, dispatcher.calls)
	assert.Equal(t, []string{"perform-scan"}, fake.registered)

	result := fake.results[0]
	assert.Equal(t, "c1", result["claim_id"])
	assert.Equal(t, "success", result["status"])
}

// TestWorkerStartFailsOnRegistration 测试注册握手失败返回RegistrationError
// 引擎返回的消息需原样透传，包含%等字符也不得被格式化改写
func TestWorkerStartFailsOnRegistration(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/workers", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 1, "任务类型未知: 容量已用100%", nil)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	client := newTestClient(t, server)

	worker, err := client.RegisterWorker("perform-scan", &recordingDispatcher{})
	require.NoError(t, err)

	err = worker.Start(context.Background())
	var regErr *engine.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "perform-scan", regErr.TaskName)
	assert.ErrorContains(t, err, "容量已用100%")
}
