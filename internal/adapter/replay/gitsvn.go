package replay

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"svn-migrate/internal/adapter/svn"
	"svn-migrate/pkg/constants"
	pkgErrors "svn-migrate/pkg/errors"
)

// 进度标记: git svn 每重放一个修订输出 "rN = <sha> (refs/...)"
var revisionMarker = regexp.MustCompile(`^r(\d+) = [0-9a-f]+`)

// tailLimit 保留的输出尾部行数, 失败时作为错误详情
const tailLimit = 50

// GitSVN 基于 git svn 的检出重放器
type GitSVN struct {
	gitBin        string
	svnBin        string
	grace         time.Duration // 优雅终止宽限期
	progressEvery time.Duration // 进度回调节流间隔
	logger        *zap.Logger

	mu    sync.Mutex
	procs map[string]*procHandle
}

type procHandle struct {
	cmd     *exec.Cmd
	workDir string
}

// NewGitSVN 创建重放器
func NewGitSVN(gitBin, svnBin string, grace, progressEvery time.Duration, logger *zap.Logger) *GitSVN {
	if gitBin == "" {
		gitBin = "git"
	}
	if svnBin == "" {
		svnBin = "svn"
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	if progressEvery <= 0 {
		progressEvery = 250 * time.Millisecond
	}
	return &GitSVN{
		gitBin:        gitBin,
		svnBin:        svnBin,
		grace:         grace,
		progressEvery: progressEvery,
		logger:        logger,
		procs:         make(map[string]*procHandle),
	}
}

// Run 执行一次迁移/同步
func (g *GitSVN) Run(ctx context.Context, p Params, onProgress ProgressFunc) (*Result, error) {
	if err := os.MkdirAll(p.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建工作目录失败: %w", err)
	}

	// git svn 不接受口令参数, 只会读svn的认证缓存, 先预热缓存
	if p.Password != "" {
		if err := g.primeAuthCache(ctx, p); err != nil {
			return nil, err
		}
	}

	// 首次运行需要初始化git svn仓库与作者映射
	if _, err := os.Stat(filepath.Join(p.WorkDir, ".git")); os.IsNotExist(err) {
		if err := g.initRepo(ctx, p); err != nil {
			return nil, err
		}
	}
	if err := g.writeAuthorFiles(p); err != nil {
		return nil, err
	}

	// 增量抓取并重放历史
	result, err := g.fetch(ctx, p, onProgress)
	if err != nil {
		return nil, err
	}

	// 推送到目标项目
	if p.TargetRemote != "" {
		if err := g.push(ctx, p); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// authCacheArgs 预热认证缓存的svn命令参数。不带--no-auth-cache,
// 让凭据落入缓存供后续git svn进程复用。
func authCacheArgs(p Params) []string {
	return []string{
		"info", "--non-interactive",
		"--username", p.Username,
		"--password", p.Password,
		p.SourceURL,
	}
}

// primeAuthCache 用一次svn info把凭据写入认证缓存
func (g *GitSVN) primeAuthCache(ctx context.Context, p Params) error {
	cmd := exec.CommandContext(ctx, g.svnBin, authCacheArgs(p)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return svn.ClassifyStderr(string(out))
	}
	return nil
}

// initRepo git svn init, 按布局传递参数
func (g *GitSVN) initRepo(ctx context.Context, p Params) error {
	args := []string{"svn", "init", p.SourceURL, "--prefix=svn/"}
	switch p.Layout.Type {
	case constants.LayoutStandard:
		args = append(args, "--stdlayout")
	case constants.LayoutTrunk:
		args = append(args, "--trunk=.")
	case constants.LayoutCustom:
		if p.Layout.Trunk != "" {
			args = append(args, "--trunk="+p.Layout.Trunk)
		}
		if p.Layout.Branches != "" {
			args = append(args, "--branches="+p.Layout.Branches)
		}
		if p.Layout.Tags != "" {
			args = append(args, "--tags="+p.Layout.Tags)
		}
	}
	if p.Username != "" {
		args = append(args, "--username="+p.Username)
	}

	cmd := exec.CommandContext(ctx, g.gitBin, args...)
	cmd.Dir = p.WorkDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return pkgErrors.NewProcessError("git svn init 失败", tailOf(string(out)), err)
	}
	return nil
}

// writeAuthorFiles 生成作者映射文件与兜底脚本。
// 未映射的作者由脚本合成 "user <user@svn.invalid>" 身份。
func (g *GitSVN) writeAuthorFiles(p Params) error {
	var sb strings.Builder
	for svnUser, identity := range p.Authors {
		sb.WriteString(fmt.Sprintf("%s = %s <%s>\n", svnUser, identity.Name, identity.Email))
	}
	if err := os.WriteFile(filepath.Join(p.WorkDir, "authors.txt"), []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("写入作者映射失败: %w", err)
	}

	script := "#!/bin/sh\necho \"$1 <$1@svn.invalid>\"\n"
	if err := os.WriteFile(filepath.Join(p.WorkDir, "authors-fallback.sh"), []byte(script), 0o755); err != nil {
		return fmt.Errorf("写入作者兜底脚本失败: %w", err)
	}
	return nil
}

// fetch 运行 git svn fetch 并解析进度
func (g *GitSVN) fetch(ctx context.Context, p Params, onProgress ProgressFunc) (*Result, error) {
	args := []string{
		"svn", "fetch",
		"--authors-file=" + filepath.Join(p.WorkDir, "authors.txt"),
		"--authors-prog=" + filepath.Join(p.WorkDir, "authors-fallback.sh"),
	}
	if p.FromRevision > 0 {
		// 从断点的下一个修订继续
		args = append(args, fmt.Sprintf("--revision=%d:HEAD", p.FromRevision+1))
	}
	if p.Username != "" {
		args = append(args, "--username="+p.Username)
	}

	cmd := exec.CommandContext(ctx, g.gitBin, args...)
	cmd.Dir = p.WorkDir
	// 独立进程组, 便于连同子进程一起终止
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, pkgErrors.NewProcessError("启动git svn进程失败", "", err)
	}

	g.register(p.RecordID, cmd, p.WorkDir)
	defer g.unregister(p.RecordID)

	// 输出尾部环形缓冲
	var tailMu sync.Mutex
	var tail []string
	appendTail := func(line string) {
		tailMu.Lock()
		tail = append(tail, line)
		if len(tail) > tailLimit {
			tail = tail[len(tail)-tailLimit:]
		}
		tailMu.Unlock()
	}

	lastRev := p.FromRevision
	var commits int64
	startedAt := time.Now()
	lastEmit := time.Time{}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			appendTail(line)

			m := revisionMarker.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			rev, _ := strconv.ParseInt(m[1], 10, 64)
			lastRev = rev
			commits++

			// 节流: 每progressEvery最多上报一次
			if onProgress != nil && time.Since(lastEmit) >= g.progressEvery {
				lastEmit = time.Now()
				onProgress(makeProgress(rev, p.TotalHint, startedAt))
			}
		}
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			appendTail(scanner.Text())
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()

	tailMu.Lock()
	tailText := strings.Join(tail, "\n")
	tailMu.Unlock()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitErr != nil {
		return nil, pkgErrors.NewProcessError("git svn fetch 异常退出", tailText, waitErr)
	}

	// 结束前上报最终进度
	if onProgress != nil {
		onProgress(makeProgress(lastRev, p.TotalHint, startedAt))
	}

	return &Result{LastRevision: lastRev, Commits: commits}, nil
}

// push 推送全部引用到目标项目
func (g *GitSVN) push(ctx context.Context, p Params) error {
	cmd := exec.CommandContext(ctx, g.gitBin, "push", "--mirror", p.TargetRemote)
	cmd.Dir = p.WorkDir
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	// 目标项目被外部删除或令牌失效在推送时才暴露
	text := string(out)
	switch {
	case strings.Contains(text, "Authentication failed") || strings.Contains(text, "HTTP 401") ||
		strings.Contains(text, "HTTP 403") || strings.Contains(text, "access denied"):
		return pkgErrors.NewAuthenticationError("推送目标项目认证失败", err)
	case strings.Contains(text, "not found") || strings.Contains(text, "HTTP 404"):
		return pkgErrors.NewNotFoundError("目标项目不存在, 可能已被外部删除")
	default:
		return pkgErrors.NewProcessError("git push 失败", tailOf(text), err)
	}
}

// Kill 终止记录对应的进程: SIGTERM → 宽限期 → SIGKILL → 清理锁文件
func (g *GitSVN) Kill(recordID string) error {
	g.mu.Lock()
	h, ok := g.procs[recordID]
	g.mu.Unlock()
	if !ok || h.cmd.Process == nil {
		return nil
	}

	pgid := -h.cmd.Process.Pid
	_ = syscall.Kill(pgid, syscall.SIGTERM)

	deadline := time.Now().Add(g.grace)
	for time.Now().Before(deadline) {
		if !g.running(recordID) {
			g.cleanupLocks(h.workDir)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	g.logger.Warn("进程未在宽限期内退出, 强制终止",
		zap.String("record_id", recordID), zap.Int("pgid", -pgid))
	_ = syscall.Kill(pgid, syscall.SIGKILL)

	// 等待Run侧回收句柄
	for i := 0; i < 50 && g.running(recordID); i++ {
		time.Sleep(100 * time.Millisecond)
	}

	g.cleanupLocks(h.workDir)
	return nil
}

// cleanupLocks 移除强杀后可能残留的锁文件
func (g *GitSVN) cleanupLocks(workDir string) {
	_ = os.Remove(filepath.Join(workDir, ".git", "index.lock"))

	svnDir := filepath.Join(workDir, ".git", "svn")
	_ = filepath.WalkDir(svnDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".lock") {
			if rmErr := os.Remove(path); rmErr == nil {
				g.logger.Debug("已清理残留锁文件", zap.String("path", path))
			}
		}
		return nil
	})
}

func (g *GitSVN) register(recordID string, cmd *exec.Cmd, workDir string) {
	g.mu.Lock()
	g.procs[recordID] = &procHandle{cmd: cmd, workDir: workDir}
	g.mu.Unlock()
}

func (g *GitSVN) unregister(recordID string) {
	g.mu.Lock()
	delete(g.procs, recordID)
	g.mu.Unlock()
}

func (g *GitSVN) running(recordID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.procs[recordID]
	return ok
}

// makeProgress 计算进度快照, 总数未知时用耗时估算
func makeProgress(current, total int64, startedAt time.Time) Progress {
	if total > 0 {
		pct := float64(current) / float64(total) * 100
		if pct > 100 {
			pct = 100
		}
		return Progress{Current: current, Total: total, Percentage: pct}
	}

	elapsed := time.Since(startedAt).Seconds()
	pct := elapsed / (elapsed + 60) * 100
	if pct > 99 {
		pct = 99
	}
	return Progress{Current: current, Percentage: pct, IsEstimated: true}
}

// tailOf 截取输出尾部
func tailOf(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) > tailLimit {
		lines = lines[len(lines)-tailLimit:]
	}
	return strings.Join(lines, "\n")
}
