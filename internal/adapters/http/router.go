package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/melih/lighthouse-forge/internal/logger"
)

// NewApp builds the fiber application with the shared error handler.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "lighthouse-forge",
		// handlers hand route params to services that keep them
		Immutable:             true,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.RequestLogger())
	return app
}

// Register mounts every route. The catch-all 404 is registered last.
func Register(app *fiber.App, service string, repos *RepoHandler, containers *ContainerHandler, proxy *ProxyHandler) {
	app.Get("/health", Health(service))

	app.Post("/clone-repo", repos.Clone)
	app.Post("/analyze-repo", repos.Analyze)
	app.Post("/containerize", repos.Containerize)
	app.Post("/rebuild-compose", repos.RebuildCompose)
	app.Post("/push-image", repos.PushImage)
	app.Post("/containerize-s2i", repos.ContainerizeS2I)

	app.Get("/repos", repos.ListRepos)
	app.Get("/repos/:name", repos.GetRepo)
	app.Delete("/repos/:name", repos.DeleteRepo)

	app.Get("/containers", containers.ListContainers)
	app.Delete("/containers/:id", containers.DeleteContainer)
	app.Get("/containers/:id/logs", containers.GetContainerLogs)
	app.Get("/docker/status", containers.DockerStatus)

	app.All("/apps/:name", proxy.ProxyRequest)
	app.All("/apps/:name/*", proxy.ProxyRequest)

	app.Use(NotFound)
}
