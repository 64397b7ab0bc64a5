package svn

import (
	"context"

	"svn-migrate/internal/model"
)

// Credentials 源库访问凭据, 仅在会话内存中保留
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ConnectionInfo 连通性探测结果
type ConnectionInfo struct {
	Reachable    bool     `json:"reachable"`
	RepoRoot     string   `json:"repo_root"`
	HeadRevision int64    `json:"head_revision"`
	RootEntries  []string `json:"root_entries"`
}

// PreviewResult 迁移预演结果, 无副作用
type PreviewResult struct {
	Branches               []string `json:"branches"`
	Tags                   []string `json:"tags"`
	UnmappedAuthors        []string `json:"unmapped_authors"` // 仅警告, 不阻塞
	EstimatedRevisionCount int64    `json:"estimated_revision_count"`
}

// Prober 源库探测接口
type Prober interface {
	// TestConnection 验证可达性与凭据
	TestConnection(ctx context.Context, url string, creds Credentials) (*ConnectionInfo, error)

	// ExtractUsers 枚举历史中出现过的作者, 可通过ctx取消
	ExtractUsers(ctx context.Context, url string, creds Credentials) ([]string, error)

	// Preview 计算迁移预演计划
	Preview(ctx context.Context, url string, creds Credentials, layout model.LayoutConfig, authors map[string]model.Author) (*PreviewResult, error)
}
