package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/dockerfile"
	"github.com/melih/lighthouse-forge/internal/inspector"
	"github.com/melih/lighthouse-forge/internal/logger"
	"github.com/melih/lighthouse-forge/internal/oracle"
)

// Composer writes a docker-compose.yml for an analyzed repository and builds
// it with docker compose.
type Composer struct {
	ws        *Workspace
	inspector *inspector.Inspector
	llm       ports.InferenceClient
	store     ports.RepoStore
	runner    ports.CommandRunner
	artifacts ports.ArtifactStore
}

func NewComposer(d Deps) *Composer {
	return &Composer{
		ws:        d.Workspace,
		inspector: d.Inspector,
		llm:       d.LLM,
		store:     d.Store,
		runner:    d.Runner,
		artifacts: d.Artifacts,
	}
}

func (c *Composer) Rebuild(ctx context.Context, projectName string) (domain.ComposeResult, error) {
	if err := ValidateName(projectName); err != nil {
		return domain.ComposeResult{}, domain.Stage(domain.StageLocate, err)
	}
	unlock := c.ws.Lock(projectName)
	defer unlock()

	path, err := c.ws.Locate(projectName)
	if err != nil {
		return domain.ComposeResult{}, domain.Stage(domain.StageLocate, err)
	}
	rec, err := c.store.Get(ctx, projectName)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ComposeResult{}, domain.Stage(domain.StageLocate,
			fmt.Errorf("%w: repository %q has no analysis, analyze it first", domain.ErrNotFound, projectName))
	}
	if err != nil {
		return domain.ComposeResult{}, domain.Stage(domain.StageLocate, err)
	}

	res, err := c.rebuild(ctx, projectName, path, rec)
	if err != nil {
		err = domain.Stage(domain.StageCompose, err)
		if _, uerr := c.store.Update(ctx, projectName, func(r *domain.RepoRecord) {
			r.SetError(domain.StageCompose, err)
		}); uerr != nil {
			logger.Errorf("failed to persist error of %s: %v", projectName, uerr)
		}
		return res, err
	}
	return res, nil
}

func (c *Composer) rebuild(ctx context.Context, name, path string, rec domain.RepoRecord) (domain.ComposeResult, error) {
	reply, err := c.llm.Complete(ctx, oracle.ComposePrompt(name, rec.AIAnalysis, c.inspector.Describe(path)))
	if err != nil {
		return domain.ComposeResult{}, err
	}
	body, services, err := dockerfile.ExtractCompose(reply)
	if err != nil {
		return domain.ComposeResult{}, fmt.Errorf("%w: %v", domain.ErrUnparseable, err)
	}

	res := domain.ComposeResult{ComposePath: filepath.Join(path, "docker-compose.yml"), Services: services}
	if err := os.WriteFile(res.ComposePath, []byte(body), 0o644); err != nil {
		return res, fmt.Errorf("write compose file: %w", err)
	}
	if _, err := c.artifacts.Put(ctx, name, "docker-compose.yml", []byte(body)); err != nil {
		logger.Warnf("failed to archive compose file of %s: %v", name, err)
	}

	out := c.runner.Run(ctx, []string{"docker", "compose", "build"}, ports.InDir(path))
	res.BuildOutput = out.Stdout
	if !out.Success {
		return res, errors.New(strings.TrimSpace(out.Failure()))
	}
	return res, nil
}
