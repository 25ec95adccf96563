package ports

import (
	"context"
	"io"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

// ContainerService defines the core operations for managing containers.
// This interface allows us to switch between Docker, Podman, or Kubernetes
// without changing the business logic.
type ContainerService interface {
	Ping(ctx context.Context) error
	ListContainers(ctx context.Context) ([]domain.Container, error)
	RunContainer(ctx context.Context, spec domain.RunSpec) (string, error)
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error
	GetContainerLogs(ctx context.Context, id string) (io.ReadCloser, error)
}
