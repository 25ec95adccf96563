package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/logger"
)

// Adapter implements ports.ContainerService using Docker SDK
type Adapter struct {
	cli *client.Client
}

// NewAdapter creates a new Docker adapter instance
func NewAdapter() (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli}, nil
}

// Close releases the underlying client transport.
func (a *Adapter) Close() error {
	return a.cli.Close()
}

// Ping checks that the daemon answers.
func (a *Adapter) Ping(ctx context.Context) error {
	if _, err := a.cli.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDaemonUnavailable, err)
	}
	return nil
}

// ListContainers returns all containers, running or not, with their published ports
func (a *Adapter) ListContainers(ctx context.Context) ([]domain.Container, error) {
	containers, err := a.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	result := make([]domain.Container, 0, len(containers))
	for _, c := range containers {
		result = append(result, toDomain(c))
	}
	return result, nil
}

// RunContainer creates and starts a detached container from a local image,
// publishing spec.Port on the same host port
func (a *Adapter) RunContainer(ctx context.Context, spec domain.RunSpec) (string, error) {
	cfg, host, err := runConfig(spec)
	if err != nil {
		return "", err
	}

	resp, err := a.cli.ContainerCreate(ctx, cfg, host, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	for _, w := range resp.Warnings {
		logger.Warnf("container %s: %s", spec.Name, w)
	}

	if err := a.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}
	return resp.ID, nil
}

// StopContainer stops a running container
func (a *Adapter) StopContainer(ctx context.Context, id string) error {
	timeout := 10 * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := a.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return notFound(fmt.Errorf("failed to stop container: %w", err), err)
	}
	return nil
}

// RemoveContainer force-removes a container by id or name
func (a *Adapter) RemoveContainer(ctx context.Context, id string) error {
	if err := a.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return notFound(fmt.Errorf("failed to remove container: %w", err), err)
	}
	return nil
}

// GetContainerLogs returns a stream of container logs
func (a *Adapter) GetContainerLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	options := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
	}
	info, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, notFound(fmt.Errorf("failed to inspect container: %w", err), err)
	}
	rc, err := a.cli.ContainerLogs(ctx, id, options)
	if err != nil {
		return nil, notFound(fmt.Errorf("failed to read logs: %w", err), err)
	}
	if info.Config != nil && info.Config.Tty {
		return rc, nil
	}
	return demux(rc), nil
}

// demux strips the stdout/stderr frame headers of a non-TTY log stream.
func demux(rc io.ReadCloser) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, rc)
		rc.Close()
		pw.CloseWithError(err)
	}()
	return &demuxed{PipeReader: pr, src: rc}
}

type demuxed struct {
	*io.PipeReader
	src io.Closer
}

func (d *demuxed) Close() error {
	d.src.Close()
	return d.PipeReader.Close()
}

func notFound(wrapped, cause error) error {
	if client.IsErrNotFound(cause) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, cause)
	}
	return wrapped
}

func runConfig(spec domain.RunSpec) (*container.Config, *container.HostConfig, error) {
	cfg := &container.Config{Image: spec.Image}
	host := &container.HostConfig{}
	if spec.Port <= 0 {
		return cfg, host, nil
	}

	port, err := nat.NewPort("tcp", strconv.Itoa(spec.Port))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid port %d: %w", spec.Port, err)
	}
	cfg.ExposedPorts = nat.PortSet{port: struct{}{}}
	host.PortBindings = nat.PortMap{
		port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: port.Port()}},
	}
	return cfg, host, nil
}

func toDomain(c types.Container) domain.Container {
	// Use the first name if available, remove slash
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	id := c.ID
	if len(id) > 12 {
		id = id[:12]
	}

	out := domain.Container{
		ID:     id,
		Name:   name,
		Image:  c.Image,
		Status: c.Status,
		State:  c.State,
	}
	for _, p := range c.Ports {
		out.Ports = append(out.Ports, domain.PortMapping{
			ContainerPort: int(p.PrivatePort),
			HostPort:      int(p.PublicPort),
			Protocol:      p.Type,
		})
	}
	return out
}
