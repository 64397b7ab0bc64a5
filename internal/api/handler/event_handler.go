package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"svn-migrate/internal/broadcaster"
)

// heartbeatInterval SSE心跳间隔, 防止中间代理断开空闲连接
const heartbeatInterval = 30 * time.Second

// EventHandler 事件推送处理器
type EventHandler struct {
	broadcaster *broadcaster.Broadcaster
}

func NewEventHandler(bc *broadcaster.Broadcaster) *EventHandler {
	return &EventHandler{broadcaster: bc}
}

// Stream SSE事件流
// @Summary 订阅迁移事件流 (Server-Sent Events)
// @Tags Event
// @Produce text/event-stream
// @Param record_id query string false "仅接收指定迁移的事件"
// @Router /api/v1/events [get]
func (h *EventHandler) Stream(c *gin.Context) {
	recordID := c.Query("record_id")

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub.ID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			if recordID != "" && event.RecordID != recordID {
				return true
			}
			c.SSEvent(event.Type, event)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
