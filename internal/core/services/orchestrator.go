package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/dockerfile"
	"github.com/melih/lighthouse-forge/internal/inspector"
	"github.com/melih/lighthouse-forge/internal/logger"
	"github.com/melih/lighthouse-forge/internal/oracle"
)

const defaultPort = 8080

type OrchestratorOptions struct {
	CheckDeprecatedImages bool
	DaemonTimeout         time.Duration
}

// Orchestrator turns an analyzed repository into a running container.
type Orchestrator struct {
	ws         *Workspace
	inspector  *inspector.Inspector
	llm        ports.InferenceClient
	store      ports.RepoStore
	containers ports.ContainerService
	builder    ports.BuilderService
	runner     ports.CommandRunner
	registry   ports.Registry
	artifacts  ports.ArtifactStore
	opts       OrchestratorOptions
	tracer     trace.Tracer
	stageTime  metric.Float64Histogram
	outcomes   metric.Int64Counter
}

// Deps groups the collaborators of the pipeline services.
type Deps struct {
	Workspace  *Workspace
	Inspector  *inspector.Inspector
	LLM        ports.InferenceClient
	Store      ports.RepoStore
	Containers ports.ContainerService
	Builder    ports.BuilderService
	Runner     ports.CommandRunner
	Registry   ports.Registry
	Artifacts  ports.ArtifactStore
}

func NewOrchestrator(d Deps, opts OrchestratorOptions) *Orchestrator {
	if opts.DaemonTimeout <= 0 {
		opts.DaemonTimeout = 5 * time.Second
	}
	return &Orchestrator{
		ws:         d.Workspace,
		inspector:  d.Inspector,
		llm:        d.LLM,
		store:      d.Store,
		containers: d.Containers,
		builder:    d.Builder,
		runner:     d.Runner,
		registry:   d.Registry,
		artifacts:  d.Artifacts,
		opts:       opts,
		tracer:     otel.Tracer(instrumentation),
		stageTime:  stageHistogram(),
		outcomes:   outcomeCounter(),
	}
}

type step struct {
	name string
	run  func(context.Context, *pass) error
}

// pass carries the state of one containerize request between stages.
type pass struct {
	name   string
	path   string
	record domain.RepoRecord
	result domain.ContainerizationResult
	runCmd []string
}

// Containerize runs synthesize, run-command, validate, build, run and the
// optional push for an analyzed repository. A failure is persisted on the
// repository record and returned tagged with its stage.
func (o *Orchestrator) Containerize(ctx context.Context, projectName string, push bool) (domain.ContainerizationResult, error) {
	ctx, span := o.tracer.Start(ctx, "containerize", trace.WithAttributes(attribute.String("repo", projectName)))
	defer span.End()

	if err := ValidateName(projectName); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.ContainerizationResult{}, domain.Stage(domain.StageLocate, err)
	}
	unlock := o.ws.Lock(projectName)
	defer unlock()

	p, err := o.locate(ctx, projectName)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.ContainerizationResult{}, err
	}

	stages := []step{
		{domain.StageDaemon, o.checkDaemon},
		{domain.StageSynthesize, o.synthesize},
		{domain.StageRunCommand, o.deriveRunCommand},
		{domain.StageValidate, o.validate},
		{domain.StageBuild, o.build},
		{domain.StageRun, o.run},
	}
	if push {
		stages = append(stages, step{domain.StagePush, o.push})
	}

	for _, s := range stages {
		if err := o.stage(ctx, s.name, p, s.run); err != nil {
			span.SetStatus(codes.Error, err.Error())
			o.recordFailure(ctx, p.name, err)
			o.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("failed_stage", domain.StageOf(err))))
			return domain.ContainerizationResult{}, err
		}
	}
	o.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("failed_stage", "")))

	if _, err := o.store.Update(ctx, p.name, func(r *domain.RepoRecord) {
		r.ImageName = p.result.ImageName
		r.ClearError()
	}); err != nil {
		logger.Errorf("failed to persist containerization of %s: %v", p.name, err)
	}
	return p.result, nil
}

func (o *Orchestrator) stage(ctx context.Context, name string, p *pass, fn func(context.Context, *pass) error) error {
	ctx, span := o.tracer.Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx, p)
	o.stageTime.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("stage", name),
		attribute.Bool("ok", err == nil),
	))
	log := logger.With().Str("repo", p.name).Str("stage", name).Dur("took", time.Since(start)).Logger()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Msg("stage failed")
		if domain.StageOf(err) != "" {
			return err
		}
		return domain.Stage(name, err)
	}
	log.Debug().Msg("stage done")
	return nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, name string, err error) {
	stage := domain.StageOf(err)
	if _, uerr := o.store.Update(ctx, name, func(r *domain.RepoRecord) {
		r.SetError(stage, err)
	}); uerr != nil {
		logger.Errorf("failed to persist error of %s: %v", name, uerr)
	}
}

// locate resolves the project directory and its analysis record. It touches
// neither Docker nor the oracle.
func (o *Orchestrator) locate(ctx context.Context, projectName string) (*pass, error) {
	path, err := o.ws.Locate(projectName)
	if err != nil {
		return nil, domain.Stage(domain.StageLocate, err)
	}
	rec, err := o.store.Get(ctx, projectName)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Stage(domain.StageLocate,
			fmt.Errorf("%w: repository %q has no analysis, analyze it first", domain.ErrNotFound, projectName))
	}
	if err != nil {
		return nil, domain.Stage(domain.StageLocate, err)
	}

	p := &pass{name: projectName, path: path, record: rec}
	p.result = domain.ContainerizationResult{
		ImageName:      ImageName(projectName),
		ContainerName:  ContainerName(projectName),
		DockerfilePath: filepath.Join(path, "Dockerfile"),
		AIAnalysis:     rec.AIAnalysis,
		Analysis:       rec.Analysis,
	}
	return p, nil
}

func (o *Orchestrator) checkDaemon(ctx context.Context, _ *pass) error {
	ctx, cancel := context.WithTimeout(ctx, o.opts.DaemonTimeout)
	defer cancel()
	if err := o.containers.Ping(ctx); err != nil {
		if errors.Is(err, domain.ErrDaemonUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrDaemonUnavailable, err)
	}
	return nil
}

func (o *Orchestrator) synthesize(ctx context.Context, p *pass) error {
	reply, err := o.llm.Complete(ctx, oracle.DockerfilePrompt(p.name, p.record.AIAnalysis, o.inspector.Describe(p.path)))
	if err != nil {
		return err
	}
	text, err := oracle.ParseDockerfile(reply)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p.result.DockerfilePath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write Dockerfile: %w", err)
	}
	return dockerfile.SanitizeFile(p.result.DockerfilePath)
}

func (o *Orchestrator) deriveRunCommand(ctx context.Context, p *pass) error {
	text, err := os.ReadFile(p.result.DockerfilePath)
	if err != nil {
		return fmt.Errorf("read Dockerfile: %w", err)
	}
	reply, err := o.llm.Complete(ctx, oracle.RunCommandPrompt(string(text)))
	if err != nil {
		return err
	}
	argv, err := oracle.ParseRunCommand(reply, p.result.ImageName, p.result.ContainerName)
	if err != nil {
		logger.Warnf("run command for %s not usable, using the default run: %v", p.name, err)
		p.result.RunCommandSource = "default"
		return nil
	}
	p.runCmd = argv
	p.result.RunCommandSource = "oracle"
	return nil
}

func (o *Orchestrator) validate(ctx context.Context, p *pass) error {
	path := p.result.DockerfilePath
	if err := dockerfile.SanitizeFile(path); err != nil {
		return err
	}

	if o.opts.CheckDeprecatedImages {
		current, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read Dockerfile: %w", err)
		}
		reply, err := o.llm.Complete(ctx, oracle.DeprecatedImagePrompt(string(current)))
		switch {
		case err != nil:
			logger.Warnf("deprecated image check for %s skipped: %v", p.name, err)
		default:
			if updated, perr := oracle.ParseDockerfile(reply); perr == nil {
				if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
					return fmt.Errorf("write Dockerfile: %w", err)
				}
			} else {
				logger.Warnf("deprecated image check for %s returned no Dockerfile, keeping the original", p.name)
			}
		}
		if err := dockerfile.SanitizeFile(path); err != nil {
			return err
		}
	}

	final, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read Dockerfile: %w", err)
	}
	f := dockerfile.Parse(string(final))
	if !f.Valid() {
		return fmt.Errorf("%w: Dockerfile has no FROM instruction", domain.ErrUnparseable)
	}
	p.result.Port = o.choosePort(f, p)
	if key, err := o.artifacts.Put(ctx, p.name, "Dockerfile", final); err != nil {
		logger.Warnf("failed to archive Dockerfile of %s: %v", p.name, err)
	} else if key != "" {
		logger.Debugf("archived Dockerfile of %s as %s", p.name, key)
	}
	return nil
}

func (o *Orchestrator) choosePort(f dockerfile.File, p *pass) int {
	if p.runCmd != nil {
		if port := oracle.PublishedPort(p.runCmd); port > 0 {
			return port
		}
	}
	if exposed := f.ExposedPorts(); len(exposed) > 0 {
		return exposed[0]
	}
	if p.record.Analysis != nil && p.record.Analysis.RecommendedPort > 0 {
		return int(p.record.Analysis.RecommendedPort)
	}
	return defaultPort
}

func (o *Orchestrator) build(ctx context.Context, p *pass) error {
	res, err := o.builder.BuildImage(ctx, p.path, p.result.ImageName)
	p.result.BuildOutput = res.Output
	return err
}

func (o *Orchestrator) run(ctx context.Context, p *pass) error {
	if err := o.containers.RemoveContainer(ctx, p.result.ContainerName); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warnf("could not remove stale container %s: %v", p.result.ContainerName, err)
	}

	if p.runCmd != nil {
		res := o.runner.Run(ctx, p.runCmd)
		if !res.Success {
			return errors.New(strings.TrimSpace(res.Failure()))
		}
		p.result.RunCommand = p.runCmd
		p.result.ContainerID = strings.TrimSpace(res.Stdout)
	} else {
		id, err := o.containers.RunContainer(ctx, domain.RunSpec{
			Image: p.result.ImageName,
			Name:  p.result.ContainerName,
			Port:  p.result.Port,
		})
		if err != nil {
			return err
		}
		p.result.ContainerID = id
		p.result.RunCommand = defaultRunCommand(p.result)
	}
	p.result.URL = fmt.Sprintf("http://localhost:%d", p.result.Port)
	return nil
}

func defaultRunCommand(r domain.ContainerizationResult) []string {
	return []string{"docker", "run", "-d", "-p", fmt.Sprintf("%d:%d", r.Port, r.Port), "--name", r.ContainerName, r.ImageName}
}

func (o *Orchestrator) push(ctx context.Context, p *pass) error {
	res, err := o.registry.Push(ctx, p.result.ImageName)
	if err != nil {
		return err
	}
	p.result.Push = &res
	return nil
}
