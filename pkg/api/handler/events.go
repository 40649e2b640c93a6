package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/LENAX/scan-orchestrator/pkg/core/events"
)

// EventsHandler 事件流处理器：通过WebSocket推送总线事件
type EventsHandler struct {
	bus      *events.Bus
	upgrader websocket.Upgrader
}

// NewEventsHandler 创建EventsHandler
func NewEventsHandler(bus *events.Bus) *EventsHandler {
	return &EventsHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 管理API仅内网可达，不做Origin校验
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// eventFrame WebSocket下行帧
type eventFrame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Stream 事件流
// GET /api/v1/events
func (h *EventsHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[events] WebSocket升级失败: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	dispatched, err := h.bus.Subscribe(ctx, events.TopicTaskDispatched)
	if err != nil {
		log.Printf("[events] 订阅失败: %v", err)
		return
	}
	started, err := h.bus.Subscribe(ctx, events.TopicWorkflowStarted)
	if err != nil {
		log.Printf("[events] 订阅失败: %v", err)
		return
	}

	for {
		var frame eventFrame
		select {
		case msg, ok := <-dispatched:
			if !ok {
				return
			}
			frame = eventFrame{Topic: events.TopicTaskDispatched, Payload: json.RawMessage(msg.Payload)}
			msg.Ack()
		case msg, ok := <-started:
			if !ok {
				return
			}
			frame = eventFrame{Topic: events.TopicWorkflowStarted, Payload: json.RawMessage(msg.Payload)}
			msg.Ack()
		case <-ctx.Done():
			return
		}

		if err := conn.WriteJSON(frame); err != nil {
			// 客户端断开，正常退出
			return
		}
	}
}
