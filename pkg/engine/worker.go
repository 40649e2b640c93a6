package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// claimWaitMS 认领长轮询等待时长
const claimWaitMS = 5000

// httpWorker 单任务类型的认领执行循环
// 认领 -> 分发到Handler -> 回报结果，失败结果同样回报，由引擎决定重试
type httpWorker struct {
	client     *HTTPClient
	taskName   string
	dispatcher Dispatcher

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// TaskName 返回负责的任务类型名
func (w *httpWorker) TaskName() string {
	return w.taskName
}

// Start 向引擎注册后开始认领循环
// 注册握手失败返回RegistrationError，调用方据此快速失败
func (w *httpWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return fmt.Errorf("任务 %s 的Worker已启动", w.taskName)
	}

	req := registerWorkerRequest{TaskName: w.taskName, WorkerID: w.client.workerID}
	var resp apiResponse[any]
	if err := w.client.post(ctx, "/api/v1/workers", req, &resp); err != nil {
		return &RegistrationError{TaskName: w.taskName, Err: err}
	}
	if resp.Code != 0 {
		return &RegistrationError{TaskName: w.taskName, Err: errors.New(resp.Message)}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.claimLoop(loopCtx)

	log.Printf("[worker] task=%s worker=%s 已注册并开始认领", w.taskName, w.client.workerID)
	return nil
}

// Stop 停止认领并等待在途任务结束
func (w *httpWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("等待任务 %s 的Worker退出超时: %w", w.taskName, ctx.Err())
	}
}

// claimLoop 认领循环：长轮询认领，逐个执行
func (w *httpWorker) claimLoop(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		claim, err := w.client.claimTask(ctx, w.taskName)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[worker] task=%s 认领失败: %v，稍后重试", w.taskName, err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		if claim == nil {
			continue // 本轮无任务
		}

		w.execute(ctx, claim)
	}
}

// execute 执行一次认领并回报结果
// 任务级超时独立于认领循环，Stop后在途任务仍可跑完
func (w *httpWorker) execute(ctx context.Context, claim *taskClaim) {
	taskCtx, cancel := context.WithTimeout(context.Background(), w.client.taskTimeout)
	defer cancel()

	output, err := w.dispatcher.Dispatch(taskCtx, w.taskName, claim.RunID, claim.Variables)

	result := claimResultRequest{Status: "success", Output: output}
	if err != nil {
		result = claimResultRequest{Status: "failure", Error: err.Error()}
	}
	if reportErr := w.client.reportResult(taskCtx, claim.ClaimID, result); reportErr != nil {
		// 回报失败时引擎会按任务超时自行判定重投，这里只记录
		log.Printf("[worker] task=%s claim=%s 回报结果失败: %v", w.taskName, claim.ClaimID, reportErr)
	}
}

// claimTask 长轮询认领一次任务；无任务可领时返回nil
func (c *HTTPClient) claimTask(ctx context.Context, taskName string) (*taskClaim, error) {
	req := claimRequest{WorkerID: c.workerID, WaitMS: claimWaitMS}
	var resp apiResponse[*taskClaim]
	if err := c.post(ctx, "/api/v1/tasks/"+taskName+"/claims", req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("认领任务 %s 失败: %s", taskName, resp.Message)
	}
	return resp.Data, nil
}

// reportResult 回报认领执行结果
func (c *HTTPClient) reportResult(ctx context.Context, claimID string, result claimResultRequest) error {
	var resp apiResponse[any]
	if err := c.post(ctx, "/api/v1/claims/"+claimID+"/result", result, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("引擎拒绝结果回报: %s", resp.Message)
	}
	return nil
}
