package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type implExecutor struct{}

// New creates a new Executor instance
func New() Executor {
	return &implExecutor{}
}

// Execute runs an external command with the given arguments
func (e *implExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	res, err := e.Run(ctx, Command{Name: name, Args: args})
	return res.Stdout, err
}

// ExecuteInDir runs an external command in a specific working directory
func (e *implExecutor) ExecuteInDir(ctx context.Context, dir string, name string, args ...string) (string, error) {
	res, err := e.Run(ctx, Command{Name: name, Args: args, Dir: dir})
	return res.Stdout, err
}

// Run executes the command, capturing stdout and stderr
func (e *implExecutor) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		// Include stderr in error message for debugging
		stderrStr := strings.TrimSpace(res.Stderr)
		if stderrStr != "" {
			return res, fmt.Errorf("command '%s' failed: %w\nstderr: %s", c.Name, err, stderrStr)
		}
		return res, fmt.Errorf("command '%s' failed: %w", c.Name, err)
	}

	return res, nil
}
