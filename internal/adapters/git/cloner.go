// Package git clones repositories with go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/logger"
)

// Cloner implements ports.Cloner.
type Cloner struct {
	timeout time.Duration
	depth   int
}

// NewCloner returns a shallow cloner. A zero timeout disables the deadline.
func NewCloner(timeout time.Duration) *Cloner {
	return &Cloner{timeout: timeout, depth: 1}
}

// Clone replaces dest with a fresh clone of repoURL.
func (c *Cloner) Clone(ctx context.Context, repoURL, dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dest, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger.Infof("cloning %s into %s", repoURL, dest)
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:   repoURL,
		Depth: c.depth, // Shallow clone for speed
	})
	if err == nil {
		return nil
	}

	_ = os.RemoveAll(dest)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrCloneTimeout
	}
	return fmt.Errorf("%w: %v", domain.ErrCloneFailed, err)
}
