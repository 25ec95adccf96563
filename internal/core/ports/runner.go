package ports

import (
	"context"
	"time"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

// CommandRunner executes an external process. Implementations never return an
// error: launch failures are reported inside the result.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, opts ...RunOption) domain.CommandResult
}

// RunOptions are the knobs a RunOption can set.
type RunOptions struct {
	Dir     string
	Timeout time.Duration
}

type RunOption func(*RunOptions)

// InDir sets the working directory of the child process.
func InDir(dir string) RunOption {
	return func(o *RunOptions) { o.Dir = dir }
}

// WithTimeout kills the child process after d. Zero means no timeout.
func WithTimeout(d time.Duration) RunOption {
	return func(o *RunOptions) { o.Timeout = d }
}

// ApplyRunOptions folds opts into a RunOptions value.
func ApplyRunOptions(opts ...RunOption) RunOptions {
	var o RunOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
