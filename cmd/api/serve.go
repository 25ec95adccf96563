package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"

	"github.com/melih/lighthouse-forge/internal/adapters/artifact"
	"github.com/melih/lighthouse-forge/internal/adapters/builder"
	"github.com/melih/lighthouse-forge/internal/adapters/docker"
	"github.com/melih/lighthouse-forge/internal/adapters/git"
	httpadapter "github.com/melih/lighthouse-forge/internal/adapters/http"
	"github.com/melih/lighthouse-forge/internal/adapters/inference"
	"github.com/melih/lighthouse-forge/internal/adapters/registry"
	"github.com/melih/lighthouse-forge/internal/adapters/runner"
	"github.com/melih/lighthouse-forge/internal/adapters/storage"
	"github.com/melih/lighthouse-forge/internal/config"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/core/services"
	"github.com/melih/lighthouse-forge/internal/inspector"
	"github.com/melih/lighthouse-forge/internal/logger"
	"github.com/melih/lighthouse-forge/internal/telemetry"
)

type ServeCommand struct{}

func (c *ServeCommand) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(
			newTelemetry,
			newStore,
			newCloner,
			newInspector,
			newContainers,
			newBuilder,
			newInference,
			newRegistry,
			newArtifacts,
			newRunner,
			newWorkspace,
			newDeps,
			services.NewAnalyzer,
			newOrchestrator,
			services.NewComposer,
			newS2I,
			newRepoHandler,
			newContainerHandler,
			httpadapter.NewProxyHandler,
			newFiber,
		),
		fx.Invoke(register),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func newTelemetry(lc fx.Lifecycle, cfg *config.Config) (telemetry.Shutdown, error) {
	shutdown, err := telemetry.New(context.Background(), cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	return shutdown, nil
}

func newStore(lc fx.Lifecycle, cfg *config.Config) (ports.RepoStore, error) {
	store, err := storage.New(cfg.Store)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return store.Close() }})
	return store, nil
}

func newCloner(cfg *config.Config) ports.Cloner {
	return git.NewCloner(cfg.Pipeline.CloneTimeout)
}

func newInspector(cfg *config.Config) *inspector.Inspector {
	return inspector.New(inspector.WithGitignore(cfg.Pipeline.RespectGitignore))
}

func newContainers(lc fx.Lifecycle) (ports.ContainerService, error) {
	adapter, err := docker.NewAdapter()
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return adapter.Close() }})
	return adapter, nil
}

func newBuilder() (ports.BuilderService, error) {
	return builder.NewBuilderAdapter()
}

func newInference(cfg *config.Config) (ports.InferenceClient, error) {
	return inference.New(context.Background(), cfg.Inference)
}

func newRegistry(cfg *config.Config, b ports.BuilderService) (ports.Registry, error) {
	return registry.NewECR(context.Background(), cfg.Registry, b)
}

func newArtifacts(cfg *config.Config) (ports.ArtifactStore, error) {
	return artifact.New(cfg.Artifacts)
}

func newRunner() ports.CommandRunner {
	return runner.New()
}

func newWorkspace(cfg *config.Config, cloner ports.Cloner) *services.Workspace {
	return services.NewWorkspace(cfg.Workspace, cloner)
}

func newDeps(
	ws *services.Workspace,
	insp *inspector.Inspector,
	llm ports.InferenceClient,
	store ports.RepoStore,
	containers ports.ContainerService,
	b ports.BuilderService,
	r ports.CommandRunner,
	reg ports.Registry,
	artifacts ports.ArtifactStore,
) services.Deps {
	return services.Deps{
		Workspace:  ws,
		Inspector:  insp,
		LLM:        llm,
		Store:      store,
		Containers: containers,
		Builder:    b,
		Runner:     r,
		Registry:   reg,
		Artifacts:  artifacts,
	}
}

func newOrchestrator(cfg *config.Config, d services.Deps) *services.Orchestrator {
	return services.NewOrchestrator(d, services.OrchestratorOptions{
		CheckDeprecatedImages: cfg.Pipeline.CheckDeprecatedImages,
		DaemonTimeout:         cfg.Pipeline.DaemonTimeout,
	})
}

func newS2I(cfg *config.Config, d services.Deps) *services.S2I {
	return services.NewS2I(d, cfg.Pipeline.DaemonTimeout)
}

func newRepoHandler(
	ws *services.Workspace,
	analyzer *services.Analyzer,
	orchestrator *services.Orchestrator,
	composer *services.Composer,
	s2i *services.S2I,
	reg ports.Registry,
	store ports.RepoStore,
) *httpadapter.RepoHandler {
	return httpadapter.NewRepoHandler(ws, analyzer, orchestrator, composer, s2i, reg, store)
}

func newContainerHandler(cfg *config.Config, containers ports.ContainerService) *httpadapter.ContainerHandler {
	return httpadapter.NewContainerHandler(containers, cfg.Pipeline.DaemonTimeout)
}

func newFiber(lc fx.Lifecycle, cfg *config.Config) *fiber.App {
	app := httpadapter.NewApp()
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := app.Listen(cfg.Listen); err != nil {
					logger.Errorf("unable to listen on %s: %v", cfg.Listen, err)
				}
			}()
			logger.Infof("listening on %s, workspace %s", cfg.Listen, cfg.Workspace)
			return nil
		},
		OnStop: func(context.Context) error {
			return app.Shutdown()
		},
	})
	return app
}

func register(
	app *fiber.App,
	cfg *config.Config,
	_ telemetry.Shutdown,
	repos *httpadapter.RepoHandler,
	containers *httpadapter.ContainerHandler,
	proxy *httpadapter.ProxyHandler,
) {
	httpadapter.Register(app, cfg.Telemetry.ServiceName, repos, containers, proxy)
}
