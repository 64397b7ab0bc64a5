package svn

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// CommandResult 命令执行结果
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner 外部命令执行接口, 便于测试替换
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (*CommandResult, error)
}

// OSCommandRunner 基于os/exec的命令执行器
type OSCommandRunner struct{}

// NewOSCommandRunner 创建命令执行器
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run 执行命令。进程非零退出不作为error返回, 由调用方根据ExitCode与Stderr分类。
func (r *OSCommandRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		exitErr := &exec.ExitError{}
		if errors.As(runErr, &exitErr) {
			return &CommandResult{
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				ExitCode: exitErr.ExitCode(),
			}, nil
		}
		return nil, runErr
	}

	return &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}, nil
}
