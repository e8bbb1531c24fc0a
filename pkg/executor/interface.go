package executor

import "context"

// Executor defines the interface for executing external commands
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (string, error)
	ExecuteInDir(ctx context.Context, dir string, name string, args ...string) (string, error)
	// Run executes cmd and returns both output streams
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Command describes one external process invocation
type Command struct {
	Name string
	Args []string
	Dir  string
}

// Result holds the captured output of a finished command
type Result struct {
	Stdout string
	Stderr string
}
