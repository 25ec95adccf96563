package http

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/core/services"
)

type Workspace interface {
	Clone(ctx context.Context, repoURL string) (services.CloneResult, error)
	Remove(name string) error
}

type Analyzer interface {
	Analyze(ctx context.Context, repoURL string) (domain.RepoRecord, error)
}

type Containerizer interface {
	Containerize(ctx context.Context, projectName string, push bool) (domain.ContainerizationResult, error)
}

type ComposeRebuilder interface {
	Rebuild(ctx context.Context, projectName string) (domain.ComposeResult, error)
}

type S2IBuilder interface {
	Build(ctx context.Context, projectName, builderImage string) (domain.S2IResult, error)
}

// RepoHandler serves the clone → analyze → containerize pipeline.
type RepoHandler struct {
	workspace Workspace
	analyzer  Analyzer
	pipeline  Containerizer
	composer  ComposeRebuilder
	s2i       S2IBuilder
	registry  ports.Registry
	store     ports.RepoStore
	validate  *validator.Validate
}

func NewRepoHandler(ws Workspace, analyzer Analyzer, pipeline Containerizer, composer ComposeRebuilder, s2i S2IBuilder, registry ports.Registry, store ports.RepoStore) *RepoHandler {
	return &RepoHandler{
		workspace: ws,
		analyzer:  analyzer,
		pipeline:  pipeline,
		composer:  composer,
		s2i:       s2i,
		registry:  registry,
		store:     store,
		validate:  validator.New(),
	}
}

type RepoRequest struct {
	RepoURL string `json:"repo_url" validate:"required,url"`
}

type ContainerizeRequest struct {
	ProjectName string `json:"project_name" validate:"required"`
	Push        bool   `json:"push"`
}

type ProjectRequest struct {
	ProjectName string `json:"project_name" validate:"required"`
}

type PushRequest struct {
	ImageName string `json:"image_name" validate:"required"`
}

type S2IRequest struct {
	ProjectName  string `json:"project_name" validate:"required"`
	BuilderImage string `json:"builder_image"`
}

type AnalyzeResponse struct {
	Success     bool                    `json:"success"`
	RepoName    string                  `json:"repo_name"`
	ProjectPath string                  `json:"project_path"`
	Structure   string                  `json:"structure"`
	AIAnalysis  string                  `json:"ai_analysis"`
	Analysis    *domain.ProjectAnalysis `json:"analysis,omitempty"`
	Model       string                  `json:"bedrock_model"`
}

func (h *RepoHandler) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return h.validate.Struct(req)
}

func (h *RepoHandler) Clone(c *fiber.Ctx) error {
	var req RepoRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	res, err := h.workspace.Clone(c.UserContext(), req.RepoURL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"message":    "Repository cloned successfully to " + res.ClonePath,
		"repo_name":  res.RepoName,
		"clone_path": res.ClonePath,
	})
}

func (h *RepoHandler) Analyze(c *fiber.Ctx) error {
	var req RepoRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	rec, err := h.analyzer.Analyze(c.UserContext(), req.RepoURL)
	if err != nil {
		return err
	}
	return c.JSON(&AnalyzeResponse{
		Success:     true,
		RepoName:    rec.RepoName,
		ProjectPath: rec.ProjectPath,
		Structure:   rec.Structure,
		AIAnalysis:  rec.AIAnalysis,
		Analysis:    rec.Analysis,
		Model:       rec.Model,
	})
}

func (h *RepoHandler) Containerize(c *fiber.Ctx) error {
	var req ContainerizeRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	res, err := h.pipeline.Containerize(c.UserContext(), req.ProjectName, req.Push)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":                 true,
		"message":                 fmt.Sprintf("Containerization completed for %s", req.ProjectName),
		"repo_name":               req.ProjectName,
		"containerization_result": res,
	})
}

func (h *RepoHandler) RebuildCompose(c *fiber.Ctx) error {
	var req ProjectRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	res, err := h.composer.Rebuild(c.UserContext(), req.ProjectName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "result": res})
}

func (h *RepoHandler) PushImage(c *fiber.Ctx) error {
	var req PushRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	res, err := h.registry.Push(c.UserContext(), req.ImageName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "result": res})
}

func (h *RepoHandler) ContainerizeS2I(c *fiber.Ctx) error {
	var req S2IRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	res, err := h.s2i.Build(c.UserContext(), req.ProjectName, req.BuilderImage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "result": res})
}

func (h *RepoHandler) ListRepos(c *fiber.Ctx) error {
	all, err := h.store.All(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "repos": all})
}

func (h *RepoHandler) GetRepo(c *fiber.Ctx) error {
	rec, err := h.store.Get(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "repo": rec})
}

// DeleteRepo forgets the analysis record and removes the checkout.
func (h *RepoHandler) DeleteRepo(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := services.ValidateName(name); err != nil {
		return err
	}
	if err := h.store.Delete(c.UserContext(), name); err != nil {
		return err
	}
	if err := h.workspace.Remove(name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Repository " + name + " deleted"})
}
