package broadcaster

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event 广播事件
type Event struct {
	Type      string      `json:"type"`
	RecordID  string      `json:"record_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscriber 订阅者, 持有有界接收通道
type Subscriber struct {
	ID string
	C  <-chan Event
}

// Broadcaster 事件广播器。Emit永不阻塞引擎:
// 订阅者通道满时直接丢弃该订阅者的事件, 不提供缓冲回放。
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	buffer int
	logger *zap.Logger
}

// New 创建广播器, buffer为每个订阅者的通道容量
func New(buffer int, logger *zap.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{
		subs:   make(map[string]chan Event),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe 注册订阅者
func (b *Broadcaster) Subscribe() *Subscriber {
	ch := make(chan Event, b.buffer)
	id := uuid.NewString()

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	return &Subscriber{ID: id, C: ch}
}

// Unsubscribe 注销订阅者并关闭其通道
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Emit 发送事件, fire-and-forget
func (b *Broadcaster) Emit(eventType, recordID string, payload interface{}) {
	event := Event{
		Type:      eventType,
		RecordID:  recordID,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// 慢订阅者丢事件, 不阻塞发送方
			b.logger.Debug("订阅者通道已满, 丢弃事件",
				zap.String("subscriber", id),
				zap.String("event", eventType),
				zap.String("record_id", recordID))
		}
	}
}

// SubscriberCount 当前订阅者数量
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close 关闭所有订阅者通道
func (b *Broadcaster) Close() {
	b.mu.Lock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}
