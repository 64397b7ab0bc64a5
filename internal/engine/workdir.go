package engine

import (
	"fmt"
	"os"
	"path/filepath"

	pkgErrors "svn-migrate/pkg/errors"
)

// Workspace 管理各迁移记录独占的工作目录
type Workspace struct {
	root string
}

// NewWorkspace 创建工作目录管理器
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("工作目录根路径不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建工作目录根路径失败: %w", err)
	}
	return &Workspace{root: root}, nil
}

// PathFor 返回记录的工作目录路径
func (w *Workspace) PathFor(recordID string) string {
	return filepath.Join(w.root, recordID)
}

// CheckResumability 校验断点续传所需的工作目录是否完好。
// 目录缺失或.git结构损坏一律拒绝, 不做部分恢复。
func (w *Workspace) CheckResumability(recordID string) error {
	dir := w.PathFor(recordID)

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return pkgErrors.NewResumabilityError("工作目录不存在, 请从头开始迁移")
	}

	gitDir := filepath.Join(dir, ".git")
	if info, err := os.Stat(gitDir); err != nil || !info.IsDir() {
		return pkgErrors.NewResumabilityError("工作目录已损坏 (缺少.git), 请从头开始迁移")
	}
	if _, err := os.Stat(filepath.Join(gitDir, "svn")); err != nil {
		return pkgErrors.NewResumabilityError("工作目录已损坏 (缺少svn元数据), 请从头开始迁移")
	}
	return nil
}

// Remove 删除记录的工作目录
func (w *Workspace) Remove(recordID string) error {
	return os.RemoveAll(w.PathFor(recordID))
}
