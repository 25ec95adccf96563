package http

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/core/services"
)

// ProxyHandler forwards /apps/:name/* to the host port published by the
// project's running container.
type ProxyHandler struct {
	service ports.ContainerService
	host    string
}

func NewProxyHandler(service ports.ContainerService) *ProxyHandler {
	return &ProxyHandler{service: service, host: "127.0.0.1"}
}

func (h *ProxyHandler) ProxyRequest(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := services.ValidateName(name); err != nil {
		return err
	}

	containers, err := h.service.ListContainers(c.UserContext())
	if err != nil {
		return err
	}
	target := findApp(containers, name)
	if target == nil {
		return fmt.Errorf("%w: app %q is not running", domain.ErrNotFound, name)
	}
	port := target.HostPort()
	if port == 0 {
		return fmt.Errorf("%w: app %q publishes no port", domain.ErrNotFound, name)
	}

	remote, err := url.Parse(fmt.Sprintf("http://%s:%d", h.host, port))
	if err != nil {
		return err
	}
	prefix := "/apps/" + name

	proxy := httputil.NewSingleHostReverseProxy(remote)
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		req.URL.Path = strings.TrimPrefix(req.URL.Path, prefix)
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}
		req.URL.RawPath = ""
		originalDirector(req)
		req.Host = remote.Host
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = fmt.Fprintf(w, "proxy target=%s error=%v", remote.Host, err)
	}

	return adaptor.HTTPHandler(proxy)(c)
}

// findApp prefers the pipeline's container name, then an exact match.
func findApp(containers []domain.Container, name string) *domain.Container {
	for _, want := range []string{services.ContainerName(name), name} {
		for i := range containers {
			ct := &containers[i]
			if ct.State == "running" && strings.TrimPrefix(ct.Name, "/") == want {
				return ct
			}
		}
	}
	return nil
}
