package replay

import (
	"context"
	"sync"
	"time"
)

// MockReplayer 模拟重放器
type MockReplayer struct {
	// 可控行为
	revisions    []int64       // 依次"重放"的修订号
	stepDelay    time.Duration // 每个修订之间的延迟
	runErr       error         // Run 是否返回错误
	failAfter    int           // 重放N个修订后返回runErr, 0表示开始前
	mu           sync.Mutex
	runCalled    int
	killCalled   int
	lastParams   *Params
	runningHooks []chan struct{} // Run进入执行后关闭, 用于测试同步
}

func NewMockReplayer() *MockReplayer {
	return &MockReplayer{
		revisions: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	}
}

// === 配置方法 ===

func (m *MockReplayer) SetRevisions(revs ...int64) *MockReplayer {
	m.revisions = revs
	return m
}

func (m *MockReplayer) SetStepDelay(d time.Duration) *MockReplayer {
	m.stepDelay = d
	return m
}

func (m *MockReplayer) SetRunError(err error, failAfter int) *MockReplayer {
	m.runErr = err
	m.failAfter = failAfter
	return m
}

// NotifyRunning 返回一个在Run开始执行时关闭的通道
func (m *MockReplayer) NotifyRunning() <-chan struct{} {
	ch := make(chan struct{})
	m.mu.Lock()
	m.runningHooks = append(m.runningHooks, ch)
	m.mu.Unlock()
	return ch
}

// === 接口实现 ===

func (m *MockReplayer) Run(ctx context.Context, p Params, onProgress ProgressFunc) (*Result, error) {
	m.mu.Lock()
	m.runCalled++
	m.lastParams = &p
	hooks := m.runningHooks
	m.runningHooks = nil
	m.mu.Unlock()

	for _, ch := range hooks {
		close(ch)
	}

	last := p.FromRevision
	var commits int64

	for i, rev := range m.revisions {
		// 断点之前的修订视为已重放
		if rev <= p.FromRevision {
			continue
		}

		if m.runErr != nil && i >= m.failAfter {
			return nil, m.runErr
		}

		if m.stepDelay > 0 {
			select {
			case <-time.After(m.stepDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		last = rev
		commits++
		if onProgress != nil {
			onProgress(Progress{Current: rev, Total: p.TotalHint, Percentage: float64(rev)})
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return &Result{LastRevision: last, Commits: commits}, nil
}

func (m *MockReplayer) Kill(recordID string) error {
	m.mu.Lock()
	m.killCalled++
	m.mu.Unlock()
	return nil
}

// === 验证方法 ===

func (m *MockReplayer) RunCalled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCalled
}

func (m *MockReplayer) KillCalled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.killCalled
}

func (m *MockReplayer) LastParams() *Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastParams
}
