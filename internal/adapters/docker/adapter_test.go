package docker

import (
	"bytes"
	"io"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

func TestToDomain(t *testing.T) {
	c := toDomain(types.Container{
		ID:     "0123456789abcdef0123",
		Names:  []string{"/container-demo"},
		Image:  "app-demo",
		State:  "running",
		Status: "Up 3 seconds",
		Ports:  []types.Port{{PrivatePort: 5000, PublicPort: 5000, Type: "tcp"}},
	})

	assert.Equal(t, "0123456789ab", c.ID)
	assert.Equal(t, "container-demo", c.Name)
	assert.Equal(t, 5000, c.HostPort())

	short := toDomain(types.Container{ID: "abc"})
	assert.Equal(t, "abc", short.ID)
	assert.Empty(t, short.Name)
	assert.Zero(t, short.HostPort())
}

func TestRunConfig(t *testing.T) {
	t.Run("publishes the port", func(t *testing.T) {
		cfg, host, err := runConfig(domain.RunSpec{Image: "app-demo", Name: "container-demo", Port: 8080})
		require.NoError(t, err)
		assert.Equal(t, "app-demo", cfg.Image)
		assert.Contains(t, cfg.ExposedPorts, nat.Port("8080/tcp"))
		assert.Equal(t, []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "8080"}}, host.PortBindings[nat.Port("8080/tcp")])
	})

	t.Run("no port", func(t *testing.T) {
		cfg, host, err := runConfig(domain.RunSpec{Image: "app-demo"})
		require.NoError(t, err)
		assert.Empty(t, cfg.ExposedPorts)
		assert.Empty(t, host.PortBindings)
	})
}

func TestDemux(t *testing.T) {
	var raw bytes.Buffer
	_, err := stdcopy.NewStdWriter(&raw, stdcopy.Stdout).Write([]byte("listening on 5000\n"))
	require.NoError(t, err)
	_, err = stdcopy.NewStdWriter(&raw, stdcopy.Stderr).Write([]byte("warning: debug mode\n"))
	require.NoError(t, err)

	rc := demux(io.NopCloser(&raw))
	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "listening on 5000\nwarning: debug mode\n", string(out))
	assert.NoError(t, rc.Close())
}
