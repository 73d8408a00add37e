// Package git drives the git CLI for whiterabbit.
//
// Repo is the only component that touches the inspected working tree. Every
// command goes through a CommandExecutor so tests can replace git with a
// scripted double. Stdout and stderr are captured separately and verbatim,
// since probe diagnostics surface them unchanged.
package git

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
)

// -----------------------------------------------------------------------------
// Command Executor
// -----------------------------------------------------------------------------

// Result is the captured outcome of one command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run executes name with args in dir. A non-zero exit status is returned
	// as an error alongside the captured Result.
	Run(ctx context.Context, dir string, name string, args ...string) (Result, error)
}

// CLICommandExecutor executes commands using os/exec.
type CLICommandExecutor struct{}

// NewCLICommandExecutor creates a new CLI command executor.
func NewCLICommandExecutor() *CLICommandExecutor {
	return &CLICommandExecutor{}
}

// Run executes a command and captures stdout and stderr separately.
func (e *CLICommandExecutor) Run(ctx context.Context, dir string, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			err = errors.Join(errors.ErrCanceled, ctx.Err())
		}
	}
	return res, err
}

// isIndexLocked reports whether git refused to run because another process
// holds .git/index.lock.
func isIndexLocked(res Result) bool {
	return strings.Contains(res.Stderr, "index.lock")
}
