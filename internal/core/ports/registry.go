package ports

import (
	"context"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

// Registry pushes a locally built image to a remote registry.
type Registry interface {
	Push(ctx context.Context, imageName string) (domain.PushResult, error)
}
