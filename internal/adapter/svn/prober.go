package svn

import (
	"context"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"svn-migrate/internal/model"
	"svn-migrate/pkg/constants"
	pkgErrors "svn-migrate/pkg/errors"
)

// CLIProber 基于svn命令行的源库探测器
type CLIProber struct {
	svnBin string
	runner CommandRunner
	logger *zap.Logger
}

// NewCLIProber 创建探测器
func NewCLIProber(svnBin string, runner CommandRunner, logger *zap.Logger) *CLIProber {
	if svnBin == "" {
		svnBin = "svn"
	}
	if runner == nil {
		runner = NewOSCommandRunner()
	}
	return &CLIProber{
		svnBin: svnBin,
		runner: runner,
		logger: logger,
	}
}

// svnInfoXML svn info --xml 输出
type svnInfoXML struct {
	XMLName xml.Name `xml:"info"`
	Entry   struct {
		Revision   int64  `xml:"revision,attr"`
		URL        string `xml:"url"`
		Repository struct {
			Root string `xml:"root"`
		} `xml:"repository"`
	} `xml:"entry"`
}

// svnListXML svn list --xml 输出
type svnListXML struct {
	XMLName xml.Name `xml:"lists"`
	List    struct {
		Entries []struct {
			Kind string `xml:"kind,attr"`
			Name string `xml:"name"`
		} `xml:"entry"`
	} `xml:"list"`
}

// svnLogXML svn log --xml 输出
type svnLogXML struct {
	XMLName xml.Name      `xml:"log"`
	Entries []svnLogEntry `xml:"logentry"`
}

type svnLogEntry struct {
	Revision int64  `xml:"revision,attr"`
	Author   string `xml:"author"`
}

// TestConnection 验证可达性与凭据
func (p *CLIProber) TestConnection(ctx context.Context, url string, creds Credentials) (*ConnectionInfo, error) {
	res, err := p.exec(ctx, creds, "info", "--xml", url)
	if err != nil {
		return nil, err
	}

	var info svnInfoXML
	if err := xml.Unmarshal([]byte(res.Stdout), &info); err != nil {
		return nil, fmt.Errorf("解析svn info输出失败: %w", err)
	}

	// 读取根目录条目
	entries, err := p.list(ctx, creds, url)
	if err != nil {
		return nil, err
	}

	return &ConnectionInfo{
		Reachable:    true,
		RepoRoot:     info.Entry.Repository.Root,
		HeadRevision: info.Entry.Revision,
		RootEntries:  entries,
	}, nil
}

// ExtractUsers 枚举历史作者
func (p *CLIProber) ExtractUsers(ctx context.Context, url string, creds Credentials) ([]string, error) {
	res, err := p.exec(ctx, creds, "log", "--xml", "-q", url)
	if err != nil {
		return nil, err
	}

	var logOut svnLogXML
	if err := xml.Unmarshal([]byte(res.Stdout), &logOut); err != nil {
		return nil, fmt.Errorf("解析svn log输出失败: %w", err)
	}

	authors := lo.Uniq(lo.FilterMap(logOut.Entries, func(e svnLogEntry, _ int) (string, bool) {
		return e.Author, e.Author != ""
	}))
	sort.Strings(authors)
	return authors, nil
}

// Preview 计算迁移预演计划, 无副作用
func (p *CLIProber) Preview(ctx context.Context, url string, creds Credentials, layout model.LayoutConfig, authors map[string]model.Author) (*PreviewResult, error) {
	info, err := p.TestConnection(ctx, url, creds)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{
		EstimatedRevisionCount: info.HeadRevision,
	}

	// 按布局枚举分支与标签
	branchesPath, tagsPath := layoutPaths(layout)
	if branchesPath != "" {
		branches, err := p.list(ctx, creds, joinURL(url, branchesPath))
		if err != nil && !pkgErrors.IsCode(err, pkgErrors.CodeNotFound) {
			return nil, err
		}
		result.Branches = branches
	}
	if tagsPath != "" {
		tags, err := p.list(ctx, creds, joinURL(url, tagsPath))
		if err != nil && !pkgErrors.IsCode(err, pkgErrors.CodeNotFound) {
			return nil, err
		}
		result.Tags = tags
	}

	// 未映射作者只作为警告返回
	users, err := p.ExtractUsers(ctx, url, creds)
	if err != nil {
		return nil, err
	}
	result.UnmappedAuthors = lo.Filter(users, func(u string, _ int) bool {
		_, mapped := authors[u]
		return !mapped
	})

	return result, nil
}

// list 列出目录条目
func (p *CLIProber) list(ctx context.Context, creds Credentials, url string) ([]string, error) {
	res, err := p.exec(ctx, creds, "list", "--xml", url)
	if err != nil {
		return nil, err
	}

	var listing svnListXML
	if err := xml.Unmarshal([]byte(res.Stdout), &listing); err != nil {
		return nil, fmt.Errorf("解析svn list输出失败: %w", err)
	}

	entries := make([]string, 0, len(listing.List.Entries))
	for _, e := range listing.List.Entries {
		entries = append(entries, strings.TrimSuffix(e.Name, "/"))
	}
	return entries, nil
}

// exec 执行svn子命令并分类错误
func (p *CLIProber) exec(ctx context.Context, creds Credentials, args ...string) (*CommandResult, error) {
	full := append([]string{}, args...)
	full = append(full, "--non-interactive", "--no-auth-cache")
	if creds.Username != "" {
		full = append(full, "--username", creds.Username)
	}
	if creds.Password != "" {
		full = append(full, "--password", creds.Password)
	}

	res, err := p.runner.Run(ctx, p.svnBin, full...)
	if err != nil {
		return nil, pkgErrors.NewUnreachableError("执行svn命令失败", err)
	}
	if res.ExitCode != 0 {
		p.logger.Debug("svn命令非零退出",
			zap.Strings("args", args),
			zap.Int("exit_code", res.ExitCode),
			zap.String("stderr", res.Stderr))
		return nil, ClassifyStderr(res.Stderr)
	}
	return res, nil
}

// ClassifyStderr 根据svn错误码分类: 认证失败/不可达/不存在
func ClassifyStderr(stderr string) error {
	switch {
	case strings.Contains(stderr, "E170001") || strings.Contains(stderr, "E215004") ||
		strings.Contains(stderr, "Authentication failed") || strings.Contains(stderr, "authorization failed"):
		return pkgErrors.NewAuthenticationError("源库认证失败", fmt.Errorf("%s", strings.TrimSpace(stderr)))
	case strings.Contains(stderr, "E170013") || strings.Contains(stderr, "E731001") ||
		strings.Contains(stderr, "Unable to connect") || strings.Contains(stderr, "Connection refused"):
		return pkgErrors.NewUnreachableError("源库不可达", fmt.Errorf("%s", strings.TrimSpace(stderr)))
	case strings.Contains(stderr, "E160013") || strings.Contains(stderr, "E200009") ||
		strings.Contains(stderr, "non-existent"):
		return pkgErrors.NewNotFoundError("源路径不存在")
	default:
		return pkgErrors.Wrap(pkgErrors.CodeInternalError, "svn命令执行失败", fmt.Errorf("%s", strings.TrimSpace(stderr)))
	}
}

// layoutPaths 根据布局返回branches/tags相对路径
func layoutPaths(layout model.LayoutConfig) (branches, tags string) {
	switch layout.Type {
	case constants.LayoutStandard:
		return "branches", "tags"
	case constants.LayoutTrunk:
		return "", ""
	case constants.LayoutCustom:
		return layout.Branches, layout.Tags
	default:
		return "", ""
	}
}

// joinURL 拼接仓库URL与相对路径
func joinURL(base, rel string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.Trim(rel, "/")
}
