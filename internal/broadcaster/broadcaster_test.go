package broadcaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	b := New(8, zap.NewNop())
	defer b.Close()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	require.Equal(t, 2, b.SubscriberCount())

	b.Emit("started", "rec-1", map[string]interface{}{"job_id": "j1"})

	for _, sub := range []*Subscriber{sub1, sub2} {
		select {
		case event := <-sub.C:
			require.Equal(t, "started", event.Type)
			require.Equal(t, "rec-1", event.RecordID)
			require.False(t, event.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("事件未送达")
		}
	}
}

func TestBroadcasterDropsWhenSubscriberFull(t *testing.T) {
	b := New(1, zap.NewNop())
	defer b.Close()

	sub := b.Subscribe()

	// 缓冲容量1, 第二条起直接丢弃, Emit不阻塞
	b.Emit("progress", "rec-1", nil)
	b.Emit("progress", "rec-2", nil)
	b.Emit("progress", "rec-3", nil)

	event := <-sub.C
	require.Equal(t, "rec-1", event.RecordID)

	select {
	case <-sub.C:
		t.Fatal("超出缓冲的事件不应送达")
	default:
	}
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	b := New(8, zap.NewNop())
	defer b.Close()

	sub := b.Subscribe()
	b.Unsubscribe(sub.ID)
	require.Equal(t, 0, b.SubscriberCount())

	// 通道已关闭
	_, ok := <-sub.C
	require.False(t, ok)

	// 重复注销不panic
	b.Unsubscribe(sub.ID)
}

func TestBroadcasterClose(t *testing.T) {
	b := New(8, zap.NewNop())

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	b.Close()

	_, ok := <-sub1.C
	require.False(t, ok)
	_, ok = <-sub2.C
	require.False(t, ok)
	require.Equal(t, 0, b.SubscriberCount())
}
