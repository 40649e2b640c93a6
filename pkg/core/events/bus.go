// Package events 基于Watermill的进程内事件总线。
// 任务分发结果与工作流启动事件通过总线发布，供管理API的事件流和测试订阅。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// 事件主题
const (
	TopicTaskDispatched  = "task.dispatched"
	TopicWorkflowStarted = "workflow.started"
)

// TaskDispatched 任务分发结果事件（对外导出）
type TaskDispatched struct {
	TaskName   string    `json:"task_name"`
	RunID      string    `json:"run_id,omitempty"`
	Outcome    string    `json:"outcome"` // success/failure
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// WorkflowStarted 工作流启动事件（对外导出）
type WorkflowStarted struct {
	WorkflowName string    `json:"workflow_name"`
	RunID        string    `json:"run_id"`
	At           time.Time `json:"at"`
}

// Bus 进程内事件总线（对外导出）
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus 创建事件总线
func NewBus() *Bus {
	logger := watermill.NewStdLogger(false, false)
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)
	return &Bus{pubsub: pubsub}
}

// Publish 发布事件（JSON序列化后投递）
func (b *Bus) Publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("发布事件到 %s 失败: %w", topic, err)
	}
	return nil
}

// Subscribe 订阅主题
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("订阅 %s 失败: %w", topic, err)
	}
	return ch, nil
}

// Close 关闭总线
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
