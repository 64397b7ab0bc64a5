package replay

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRevisionMarkerParsing(t *testing.T) {
	cases := []struct {
		line string
		rev  string
		ok   bool
	}{
		{"r12 = 0a1b2c3d4e5f60718293a4b5c6d7e8f901234567 (refs/remotes/svn/trunk)", "12", true},
		{"r1 = ffffffffffffffffffffffffffffffffffffffff (refs/remotes/svn/tags/v1)", "1", true},
		{"\tA\tsrc/main.c", "", false},
		{"W: Ignoring error from SVN", "", false},
		{"Checked out HEAD:", "", false},
	}

	for _, tc := range cases {
		m := revisionMarker.FindStringSubmatch(tc.line)
		if tc.ok {
			require.NotNil(t, m, "应匹配: %q", tc.line)
			require.Equal(t, tc.rev, m[1])
		} else {
			require.Nil(t, m, "不应匹配: %q", tc.line)
		}
	}
}

func TestAuthCacheArgsCarryPassword(t *testing.T) {
	args := authCacheArgs(Params{
		SourceURL: "https://svn.example.com/repo",
		Username:  "alice",
		Password:  "s3cret",
	})

	require.Contains(t, args, "--username")
	require.Contains(t, args, "alice")
	require.Contains(t, args, "--password")
	require.Contains(t, args, "s3cret")
	require.Equal(t, "https://svn.example.com/repo", args[len(args)-1])
	// 凭据必须落入认证缓存, 供git svn进程复用
	require.NotContains(t, args, "--no-auth-cache")
}

func TestInitAndPushSurfaceCancellation(t *testing.T) {
	g := NewGitSVN("git", "svn", time.Second, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Params{
		RecordID:     "r1",
		SourceURL:    "https://svn.example.com/repo",
		WorkDir:      t.TempDir(),
		TargetRemote: "https://git.example.com/group/repo.git",
	}

	// 停止落在init/push阶段应表现为取消, 而不是进程失败
	require.ErrorIs(t, g.initRepo(ctx, p), context.Canceled)
	require.ErrorIs(t, g.push(ctx, p), context.Canceled)
	require.ErrorIs(t, g.primeAuthCache(ctx, p), context.Canceled)
}

func TestMakeProgressWithKnownTotal(t *testing.T) {
	p := makeProgress(50, 200, time.Now())
	require.Equal(t, int64(50), p.Current)
	require.Equal(t, int64(200), p.Total)
	require.InDelta(t, 25.0, p.Percentage, 0.01)
	require.False(t, p.IsEstimated)

	// 超出总数截断到100
	p = makeProgress(250, 200, time.Now())
	require.InDelta(t, 100.0, p.Percentage, 0.01)
}

func TestMakeProgressEstimatesUnknownTotal(t *testing.T) {
	p := makeProgress(10, 0, time.Now().Add(-time.Hour))
	require.True(t, p.IsEstimated)
	require.LessOrEqual(t, p.Percentage, 99.0)
	require.Greater(t, p.Percentage, 90.0)

	p = makeProgress(10, 0, time.Now())
	require.True(t, p.IsEstimated)
	require.Less(t, p.Percentage, 10.0)
}

func TestTailOfTruncatesOutput(t *testing.T) {
	var lines []string
	for i := 0; i < tailLimit*2; i++ {
		lines = append(lines, fmt.Sprintf("line-%d", i))
	}

	tail := tailOf(strings.Join(lines, "\n"))
	got := strings.Split(tail, "\n")
	require.Len(t, got, tailLimit)
	require.Equal(t, fmt.Sprintf("line-%d", tailLimit*2-1), got[len(got)-1])

	require.Equal(t, "short", tailOf("short\n"))
}
