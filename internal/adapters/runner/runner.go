package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/logger"
)

// Exec implements ports.CommandRunner with os/exec.
type Exec struct{}

func New() *Exec { return &Exec{} }

// Run executes argv and captures its exit code and output.
func (e *Exec) Run(ctx context.Context, argv []string, opts ...ports.RunOption) domain.CommandResult {
	if len(argv) == 0 {
		return domain.CommandResult{Success: false, ReturnCode: -1, Error: "empty command"}
	}
	o := ports.ApplyRunOptions(opts...)
	if ctx == nil {
		ctx = context.Background()
	}
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = o.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debugf("exec %v", argv)
	err := cmd.Run()
	res := domain.CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		res.Success = true
		return res
	}

	if ctx.Err() != nil {
		res.ReturnCode = -1
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.Error = fmt.Sprintf("command timed out after %s", o.Timeout)
		} else {
			res.Error = ctx.Err().Error()
		}
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ReturnCode = exitErr.ExitCode()
		return res
	}

	res.ReturnCode = -1
	res.Error = err.Error()
	return res
}
