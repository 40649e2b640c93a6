package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/LENAX/scan-orchestrator/pkg/config"
	"github.com/LENAX/scan-orchestrator/pkg/core/workflow"
)

// apiResponse 引擎API统一响应包装
type apiResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// startRunRequest 启动运行请求体
type startRunRequest struct {
	Variables map[string]any `json:"variables"`
}

// startRunResponse 启动运行响应体
type startRunResponse struct {
	RunID string `json:"run_id"`
}

// registerWorkerRequest Worker注册请求体
type registerWorkerRequest struct {
	TaskName string `json:"task_name"`
	WorkerID string `json:"worker_id"`
}

// claimRequest 任务认领请求体（长轮询）
type claimRequest struct {
	WorkerID string `json:"worker_id"`
	WaitMS   int    `json:"wait_ms"`
}

// taskClaim 引擎返回的一次任务认领
type taskClaim struct {
	ClaimID   string         `json:"claim_id"`
	RunID     string         `json:"run_id"`
	Variables map[string]any `json:"variables"`
}

// claimResultRequest 任务执行结果回报请求体
type claimResultRequest struct {
	Status string         `json:"status"` // success/failure
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// HTTPClient 基于HTTP API的引擎客户端（对外导出）
type HTTPClient struct {
	baseURL     string
	workerID    string
	taskTimeout time.Duration
	httpClient  *http.Client
}

// NewHTTPClient 创建引擎HTTP客户端（对外导出）
// 证书三件套齐全时启用双向TLS，否则走明文HTTP
func NewHTTPClient(cfg *config.EngineConfig) (*HTTPClient, error) {
	scheme := "http"
	var transport http.RoundTripper
	if cfg.TLSEnabled() {
		tlsConfig, err := LoadTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		scheme = "https"
		transport = &http.Transport{TLSClientConfig: tlsConfig}
	}

	return &HTTPClient{
		baseURL:     fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port),
		workerID:    "worker-" + uuid.NewString(),
		taskTimeout: time.Duration(cfg.TaskTimeoutMS) * time.Millisecond,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}, nil
}

// PublishWorkflow 发布工作流定义
// 同名重复发布由引擎以覆盖语义处理，可在每次启动时无条件调用
func (c *HTTPClient) PublishWorkflow(ctx context.Context, spec *workflow.Spec) error {
	if err := workflow.Validate(spec); err != nil {
		return err
	}
	var resp apiResponse[any]
	if err := c.post(ctx, "/api/v1/workflows", spec, &resp); err != nil {
		return fmt.Errorf("发布工作流 %s 失败: %w", spec.Name, err)
	}
	if resp.Code != 0 {
		return fmt.Errorf("发布工作流 %s 失败: %s", spec.Name, resp.Message)
	}
	return nil
}

// StartWorkflow 启动一次工作流运行
func (c *HTTPClient) StartWorkflow(ctx context.Context, name string, vars map[string]any) (string, error) {
	var resp apiResponse[startRunResponse]
	req := startRunRequest{Variables: vars}
	if err := c.post(ctx, "/api/v1/workflows/"+name+"/runs", req, &resp); err != nil {
		return "", fmt.Errorf("启动工作流 %s 失败: %w", name, err)
	}
	if resp.Code != 0 {
		return "", fmt.Errorf("启动工作流 %s 失败: %s", name, resp.Message)
	}
	return resp.Data.RunID, nil
}

// RegisterWorker 创建任务类型的认领Worker
// 只构造不联络引擎；与引擎的握手发生在Worker.Start
func (c *HTTPClient) RegisterWorker(taskName string, dispatcher Dispatcher) (Worker, error) {
	if taskName == "" {
		return nil, fmt.Errorf("任务名不能为空")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("任务 %s 缺少分发器", taskName)
	}
	return &httpWorker{
		client:     c,
		taskName:   taskName,
		dispatcher: dispatcher,
	}, nil
}

// ========== HTTP Methods ==========

func (c *HTTPClient) post(ctx context.Context, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	return c.parseResponse(resp, result)
}

func (c *HTTPClient) parseResponse(resp *http.Response, result any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("引擎返回 %d: %s", resp.StatusCode, string(body))
	}
	// 204或空响应体：无数据可解析（认领轮询空转时常见）
	if resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("解析响应失败: %w, body: %s", err, string(body))
	}
	return nil
}
