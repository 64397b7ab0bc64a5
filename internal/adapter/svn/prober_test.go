package svn

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"svn-migrate/internal/model"
	pkgErrors "svn-migrate/pkg/errors"
)

const infoXML = `<?xml version="1.0" encoding="UTF-8"?>
<info>
<entry kind="dir" path="repo" revision="42">
<url>https://svn.example.com/repo</url>
<repository>
<root>https://svn.example.com/repo</root>
<uuid>3f9c3e9a-0000-0000-0000-000000000000</uuid>
</repository>
</entry>
</info>`

const rootListXML = `<?xml version="1.0" encoding="UTF-8"?>
<lists>
<list path="https://svn.example.com/repo">
<entry kind="dir"><name>trunk</name></entry>
<entry kind="dir"><name>branches</name></entry>
<entry kind="dir"><name>tags</name></entry>
</list>
</lists>`

const branchListXML = `<?xml version="1.0" encoding="UTF-8"?>
<lists>
<list path="https://svn.example.com/repo/branches">
<entry kind="dir"><name>feature-x</name></entry>
<entry kind="dir"><name>release-1.0</name></entry>
</list>
</lists>`

const logXML = `<?xml version="1.0" encoding="UTF-8"?>
<log>
<logentry revision="3"><author>bob</author></logentry>
<logentry revision="2"><author>alice</author></logentry>
<logentry revision="1"><author>alice</author></logentry>
</log>`

// fakeRunner 按svn子命令分发固定输出
type fakeRunner struct {
	results  map[string]*CommandResult
	lastArgs [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	f.lastArgs = append(f.lastArgs, args)
	if res, ok := f.results[args[0]]; ok {
		return res, nil
	}
	return &CommandResult{ExitCode: 1, Stderr: "svn: E200009: unknown subcommand"}, nil
}

func newTestProber(runner CommandRunner) *CLIProber {
	return NewCLIProber("svn", runner, zap.NewNop())
}

func TestProberTestConnection(t *testing.T) {
	runner := &fakeRunner{results: map[string]*CommandResult{
		"info": {Stdout: infoXML},
		"list": {Stdout: rootListXML},
	}}
	p := newTestProber(runner)

	info, err := p.TestConnection(context.Background(),
		"https://svn.example.com/repo", Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	require.True(t, info.Reachable)
	require.Equal(t, int64(42), info.HeadRevision)
	require.Equal(t, "https://svn.example.com/repo", info.RepoRoot)
	require.Equal(t, []string{"trunk", "branches", "tags"}, info.RootEntries)

	// 凭据与非交互参数必须传给svn
	joined := strings.Join(runner.lastArgs[0], " ")
	require.Contains(t, joined, "--non-interactive")
	require.Contains(t, joined, "--username alice")
	require.Contains(t, joined, "--password pw")
}

func TestProberExtractUsers(t *testing.T) {
	runner := &fakeRunner{results: map[string]*CommandResult{
		"log": {Stdout: logXML},
	}}
	p := newTestProber(runner)

	users, err := p.ExtractUsers(context.Background(), "https://svn.example.com/repo", Credentials{})
	require.NoError(t, err)
	// 去重并排序
	require.Equal(t, []string{"alice", "bob"}, users)
}

func TestProberPreview(t *testing.T) {
	listCalls := 0
	base := map[string]*CommandResult{
		"info": {Stdout: infoXML},
		"log":  {Stdout: logXML},
	}
	// list: 根目录 → 分支目录 → 标签目录(不存在)
	p := NewCLIProber("svn", runnerFunc(func(ctx context.Context, name string, args ...string) (*CommandResult, error) {
		if args[0] != "list" {
			return base[args[0]], nil
		}
		listCalls++
		switch listCalls {
		case 1:
			return &CommandResult{Stdout: rootListXML}, nil
		case 2:
			return &CommandResult{Stdout: branchListXML}, nil
		default:
			return &CommandResult{ExitCode: 1, Stderr: "svn: E200009: Could not list all targets because some targets are non-existent"}, nil
		}
	}), zap.NewNop())

	result, err := p.Preview(context.Background(), "https://svn.example.com/repo", Credentials{},
		model.LayoutConfig{Type: "standard"},
		map[string]model.Author{"alice": {Name: "Alice", Email: "alice@example.com"}})
	require.NoError(t, err)
	require.Equal(t, int64(42), result.EstimatedRevisionCount)
	require.Equal(t, []string{"feature-x", "release-1.0"}, result.Branches)
	// tags目录不存在只降级为空, 不报错
	require.Empty(t, result.Tags)
	// bob未出现在作者映射中
	require.Equal(t, []string{"bob"}, result.UnmappedAuthors)
}

type runnerFunc func(ctx context.Context, name string, args ...string) (*CommandResult, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	return f(ctx, name, args...)
}

func TestClassifyStderr(t *testing.T) {
	cases := []struct {
		stderr string
		code   int
	}{
		{"svn: E170001: Authentication failed", pkgErrors.CodeAuthentication},
		{"svn: E215004: No more credentials or we tried too many times", pkgErrors.CodeAuthentication},
		{"svn: E170013: Unable to connect to a repository at URL", pkgErrors.CodeUnreachable},
		{"svn: E731001: No such host is known", pkgErrors.CodeUnreachable},
		{"svn: E160013: File not found", pkgErrors.CodeNotFound},
		{"svn: E123456: something else entirely", pkgErrors.CodeInternalError},
	}

	for _, tc := range cases {
		err := ClassifyStderr(tc.stderr)
		require.True(t, pkgErrors.IsCode(err, tc.code), "stderr=%q 期望错误码 %d, 实际 %v", tc.stderr, tc.code, err)
	}
}

func TestProberClassifiesAuthFailure(t *testing.T) {
	runner := &fakeRunner{results: map[string]*CommandResult{
		"info": {ExitCode: 1, Stderr: "svn: E170001: Authentication failed"},
	}}
	p := newTestProber(runner)

	_, err := p.TestConnection(context.Background(), "https://svn.example.com/repo", Credentials{})
	require.Error(t, err)
	require.True(t, pkgErrors.IsCode(err, pkgErrors.CodeAuthentication))
}
