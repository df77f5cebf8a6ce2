// Package sandbox runs shell commands requested by the model, either in
// a throwaway Docker container or directly on the host. Container
// execution is the default whenever a Docker daemon is reachable.
package sandbox

import (
	"context"
	"time"
)

// Result captures the output of one command.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// Runner executes a command inside a working directory with a timeout.
// A timeout <= 0 uses the runner's configured default.
type Runner interface {
	RunCmd(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (Result, error)
}

// RunCmd executes via the default runner, chosen from the environment.
func RunCmd(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (Result, error) {
	return NewDefaultRunner().RunCmd(ctx, workDir, name, args, timeout)
}
