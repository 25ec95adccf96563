package ports

import (
	"context"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

// BuilderService defines operations for building and publishing container images.
type BuilderService interface {
	// BuildImage builds a Docker image from the Dockerfile at the root of contextDir.
	// It returns the build log or an error carrying the daemon's failure text.
	BuildImage(ctx context.Context, contextDir string, imageName string) (domain.BuildResult, error)
	TagImage(ctx context.Context, source, target string) error
	Login(ctx context.Context, auth domain.RegistryAuth) error
	PushImage(ctx context.Context, ref string, auth domain.RegistryAuth) (string, error)
}
