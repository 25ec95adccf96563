package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

func TestDetectBuilder(t *testing.T) {
	h := newHarness(t)
	py := h.project(t, "py", map[string]string{"requirements.txt": "flask"}, "")
	node := h.project(t, "node", map[string]string{"package.json": "{}"}, "")
	other := h.project(t, "other", map[string]string{"main.go": "package main"}, "")

	img, err := DetectBuilder(py)
	require.NoError(t, err)
	assert.Equal(t, "registry.redhat.io/ubi9/python-311", img)

	img, err = DetectBuilder(node)
	require.NoError(t, err)
	assert.Equal(t, "registry.redhat.io/ubi9/nodejs-18", img)

	_, err = DetectBuilder(other)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestS2IBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("builds and runs", func(t *testing.T) {
		h := newHarness(t)
		dir := h.project(t, "demo", map[string]string{"requirements.txt": "flask"}, "")
		h.runner.results["s2i build"] = domain.CommandResult{Success: true, Stdout: "Build completed successfully"}

		res, err := NewS2I(h.deps(), 0).Build(ctx, "demo", "")
		require.NoError(t, err)
		assert.Equal(t, "s2i-demo", res.Image)
		assert.Equal(t, "registry.redhat.io/ubi9/python-311", res.BuilderImage)
		assert.Equal(t, 8080, res.Port)
		assert.Equal(t, "cid-s2i-container-demo", res.ContainerID)
		assert.Empty(t, res.RunError)

		require.Len(t, h.runner.calls, 2)
		assert.Equal(t, []string{"s2i", "version"}, h.runner.calls[0])
		assert.Equal(t, []string{"s2i", "build", dir, "registry.redhat.io/ubi9/python-311", "s2i-demo"}, h.runner.calls[1])
	})

	t.Run("explicit builder image", func(t *testing.T) {
		h := newHarness(t)
		h.project(t, "demo", nil, "")
		res, err := NewS2I(h.deps(), 0).Build(ctx, "demo", "registry.redhat.io/ubi9/openjdk-17")
		require.NoError(t, err)
		assert.Equal(t, "registry.redhat.io/ubi9/openjdk-17", res.BuilderImage)
	})

	t.Run("s2i missing", func(t *testing.T) {
		h := newHarness(t)
		h.project(t, "demo", map[string]string{"package.json": "{}"}, "")
		h.runner.results["s2i version"] = domain.CommandResult{ReturnCode: -1, Error: "exec: \"s2i\": executable file not found in $PATH"}

		_, err := NewS2I(h.deps(), 0).Build(ctx, "demo", "")
		assert.Equal(t, domain.StageS2I, domain.StageOf(err))
		assert.ErrorContains(t, err, "not installed")
	})

	t.Run("run failure is reported in the result", func(t *testing.T) {
		h := newHarness(t)
		h.project(t, "demo", map[string]string{"package.json": "{}"}, "")
		h.containers.runErr = errBoom

		res, err := NewS2I(h.deps(), 0).Build(ctx, "demo", "")
		require.NoError(t, err)
		assert.Equal(t, "boom", res.RunError)
	})

	t.Run("daemon down", func(t *testing.T) {
		h := newHarness(t)
		h.project(t, "demo", map[string]string{"package.json": "{}"}, "")
		h.containers.pingErr = errBoom

		_, err := NewS2I(h.deps(), 0).Build(ctx, "demo", "")
		assert.ErrorIs(t, err, domain.ErrDaemonUnavailable)
		assert.Empty(t, h.runner.calls)
	})
}
