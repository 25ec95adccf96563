package builder

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/logger"
)

// imageAPI is the part of the Docker client the builder talks to.
type imageAPI interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	ImageTag(ctx context.Context, source, target string) error
	ImagePush(ctx context.Context, ref string, options types.ImagePushOptions) (io.ReadCloser, error)
	RegistryLogin(ctx context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error)
}

// Adapter implements ports.BuilderService using the Docker SDK.
type Adapter struct {
	cli imageAPI
}

func NewBuilderAdapter() (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli}, nil
}

// BuildImage builds the Dockerfile at the root of contextDir and tags the
// result as imageName. The returned output is the rendered build log; a
// build step failure is returned as an error carrying the daemon's message.
func (a *Adapter) BuildImage(ctx context.Context, contextDir string, imageName string) (domain.BuildResult, error) {
	tar, err := archive.TarWithOptions(contextDir, &archive.TarOptions{
		ExcludePatterns: []string{".git"},
	})
	if err != nil {
		return domain.BuildResult{}, fmt.Errorf("failed to create build context: %w", err)
	}
	defer tar.Close()

	logger.Infof("building docker image %s from %s", imageName, contextDir)
	resp, err := a.cli.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:       []string{imageName},
		Dockerfile: "Dockerfile",
		Remove:     true, // Remove intermediate containers
	})
	if err != nil {
		return domain.BuildResult{}, fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, &out, 0, false, nil); err != nil {
		return domain.BuildResult{ImageName: imageName, Output: out.String()}, fmt.Errorf("failed to build image: %w", err)
	}
	return domain.BuildResult{ImageName: imageName, Output: out.String()}, nil
}

func (a *Adapter) TagImage(ctx context.Context, source, target string) error {
	if err := a.cli.ImageTag(ctx, source, target); err != nil {
		return fmt.Errorf("failed to tag %s as %s: %w", source, target, err)
	}
	return nil
}

// Login validates credentials against the registry.
func (a *Adapter) Login(ctx context.Context, auth domain.RegistryAuth) error {
	if _, err := a.cli.RegistryLogin(ctx, authConfig(auth)); err != nil {
		return fmt.Errorf("failed to log in to %s: %w", auth.ServerAddress, err)
	}
	return nil
}

// PushImage pushes ref and returns the rendered push log.
func (a *Adapter) PushImage(ctx context.Context, ref string, auth domain.RegistryAuth) (string, error) {
	encoded, err := registry.EncodeAuthConfig(authConfig(auth))
	if err != nil {
		return "", fmt.Errorf("failed to encode registry auth: %w", err)
	}

	rc, err := a.cli.ImagePush(ctx, ref, types.ImagePushOptions{RegistryAuth: encoded})
	if err != nil {
		return "", fmt.Errorf("failed to push %s: %w", ref, err)
	}
	defer rc.Close()

	var out bytes.Buffer
	if err := jsonmessage.DisplayJSONMessagesStream(rc, &out, 0, false, nil); err != nil {
		return out.String(), fmt.Errorf("failed to push %s: %w", ref, err)
	}
	return out.String(), nil
}

func authConfig(auth domain.RegistryAuth) registry.AuthConfig {
	return registry.AuthConfig{
		Username:      auth.Username,
		Password:      auth.Password,
		ServerAddress: auth.ServerAddress,
	}
}
