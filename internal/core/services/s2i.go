package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/logger"
)

const s2iPort = 8080

// Builder images picked when the caller does not name one.
var s2iBuilders = []struct {
	marker string
	image  string
}{
	{"requirements.txt", "registry.redhat.io/ubi9/python-311"},
	{"package.json", "registry.redhat.io/ubi9/nodejs-18"},
}

// S2I builds images with the source-to-image CLI instead of a Dockerfile.
type S2I struct {
	ws            *Workspace
	containers    ports.ContainerService
	runner        ports.CommandRunner
	daemonTimeout time.Duration
}

func NewS2I(d Deps, daemonTimeout time.Duration) *S2I {
	if daemonTimeout <= 0 {
		daemonTimeout = 5 * time.Second
	}
	return &S2I{ws: d.Workspace, containers: d.Containers, runner: d.Runner, daemonTimeout: daemonTimeout}
}

// DetectBuilder returns the builder image for a project directory.
func DetectBuilder(dir string) (string, error) {
	for _, b := range s2iBuilders {
		if _, err := os.Stat(filepath.Join(dir, b.marker)); err == nil {
			return b.image, nil
		}
	}
	return "", fmt.Errorf("%w: could not auto-detect project type, please specify builder_image", domain.ErrInvalidInput)
}

// Build runs s2i build for a cloned project and starts the image on 8080.
// A failed start is reported in RunError, not as an error.
func (s *S2I) Build(ctx context.Context, projectName, builderImage string) (domain.S2IResult, error) {
	if err := ValidateName(projectName); err != nil {
		return domain.S2IResult{}, domain.Stage(domain.StageLocate, err)
	}
	unlock := s.ws.Lock(projectName)
	defer unlock()

	path, err := s.ws.Locate(projectName)
	if err != nil {
		return domain.S2IResult{}, domain.Stage(domain.StageLocate, err)
	}
	if builderImage == "" {
		if builderImage, err = DetectBuilder(path); err != nil {
			return domain.S2IResult{}, err
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.daemonTimeout)
	err = s.containers.Ping(pingCtx)
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrDaemonUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrDaemonUnavailable, err)
		}
		return domain.S2IResult{}, domain.Stage(domain.StageDaemon, err)
	}

	if v := s.runner.Run(ctx, []string{"s2i", "version"}, ports.WithTimeout(10*time.Second)); !v.Success {
		return domain.S2IResult{}, domain.Stage(domain.StageS2I,
			fmt.Errorf("s2i is not installed, see https://github.com/openshift/source-to-image: %s", strings.TrimSpace(v.Failure())))
	}

	res := domain.S2IResult{Image: "s2i-" + refName(projectName), BuilderImage: builderImage, Port: s2iPort}
	out := s.runner.Run(ctx, []string{"s2i", "build", path, builderImage, res.Image})
	res.Output = out.Stdout
	if !out.Success {
		return res, domain.Stage(domain.StageS2I, fmt.Errorf("s2i build failed: %s", strings.TrimSpace(out.Failure())))
	}

	name := "s2i-" + ContainerName(projectName)
	if err := s.containers.RemoveContainer(ctx, name); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warnf("could not remove stale container %s: %v", name, err)
	}
	id, err := s.containers.RunContainer(ctx, domain.RunSpec{Image: res.Image, Name: name, Port: s2iPort})
	if err != nil {
		res.RunError = err.Error()
		return res, nil
	}
	res.ContainerID = id
	return res, nil
}
