package svn

import (
	"context"
	"sync"

	"svn-migrate/internal/model"
)

// MockProber 模拟探测器
type MockProber struct {
	// 可控行为
	connInfo     *ConnectionInfo
	users        []string
	preview      *PreviewResult
	connErr      error // TestConnection 是否返回错误
	usersErr     error
	previewErr   error
	testCalled   int
	lastCreds    Credentials
	mu           sync.Mutex
}

func NewMockProber() *MockProber {
	return &MockProber{
		connInfo: &ConnectionInfo{
			Reachable:    true,
			RepoRoot:     "svn://example.com/repo",
			HeadRevision: 10,
			RootEntries:  []string{"trunk", "branches", "tags"},
		},
		users:   []string{"alice", "bob"},
		preview: &PreviewResult{EstimatedRevisionCount: 10},
	}
}

// === 配置方法 ===

func (m *MockProber) SetConnectionInfo(info *ConnectionInfo) *MockProber {
	m.connInfo = info
	return m
}

func (m *MockProber) SetConnectionError(err error) *MockProber {
	m.connErr = err
	return m
}

func (m *MockProber) SetUsers(users []string) *MockProber {
	m.users = users
	return m
}

func (m *MockProber) SetPreview(p *PreviewResult) *MockProber {
	m.preview = p
	return m
}

// === 接口实现 ===

func (m *MockProber) TestConnection(ctx context.Context, url string, creds Credentials) (*ConnectionInfo, error) {
	m.mu.Lock()
	m.testCalled++
	m.lastCreds = creds
	m.mu.Unlock()

	if m.connErr != nil {
		return nil, m.connErr
	}
	return m.connInfo, nil
}

func (m *MockProber) ExtractUsers(ctx context.Context, url string, creds Credentials) ([]string, error) {
	if m.usersErr != nil {
		return nil, m.usersErr
	}
	return m.users, nil
}

func (m *MockProber) Preview(ctx context.Context, url string, creds Credentials, layout model.LayoutConfig, authors map[string]model.Author) (*PreviewResult, error) {
	if m.previewErr != nil {
		return nil, m.previewErr
	}
	return m.preview, nil
}

// === 验证方法 ===

func (m *MockProber) TestConnectionCalled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.testCalled
}

func (m *MockProber) LastCredentials() Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCreds
}
