package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/logger"
)

// ContainerHandler exposes the local Docker daemon.
type ContainerHandler struct {
	service       ports.ContainerService
	daemonTimeout time.Duration
}

func NewContainerHandler(service ports.ContainerService, daemonTimeout time.Duration) *ContainerHandler {
	if daemonTimeout <= 0 {
		daemonTimeout = 5 * time.Second
	}
	return &ContainerHandler{service: service, daemonTimeout: daemonTimeout}
}

func (h *ContainerHandler) ListContainers(c *fiber.Ctx) error {
	containers, err := h.service.ListContainers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "containers": containers})
}

// DeleteContainer stops and removes a container. A container that is
// already stopped is still removed.
func (h *ContainerHandler) DeleteContainer(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Container ID is required")
	}

	if err := h.service.StopContainer(c.UserContext(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		logger.Warnf("stop %s: %v", id, err)
	}
	if err := h.service.RemoveContainer(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Container " + id + " removed"})
}

func (h *ContainerHandler) GetContainerLogs(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Container ID is required")
	}

	logs, err := h.service.GetContainerLogs(c.UserContext(), id)
	if err != nil {
		return err
	}
	// SendStream closes logs once the body is written.
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendStream(logs)
}

func (h *ContainerHandler) DockerStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.daemonTimeout)
	defer cancel()
	if err := h.service.Ping(ctx); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "running": true})
}

func Health(service string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": service})
	}
}
