package builder

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

type fakeImageAPI struct {
	buildBody string
	pushBody  string
	tagErr    error

	buildOpts types.ImageBuildOptions
	pushOpts  types.ImagePushOptions
	tagged    [2]string
	login     registry.AuthConfig
}

func (f *fakeImageAPI) ImageBuild(_ context.Context, r io.Reader, opts types.ImageBuildOptions) (types.ImageBuildResponse, error) {
	_, _ = io.Copy(io.Discard, r)
	f.buildOpts = opts
	return types.ImageBuildResponse{Body: io.NopCloser(strings.NewReader(f.buildBody))}, nil
}

func (f *fakeImageAPI) ImageTag(_ context.Context, source, target string) error {
	f.tagged = [2]string{source, target}
	return f.tagErr
}

func (f *fakeImageAPI) ImagePush(_ context.Context, _ string, opts types.ImagePushOptions) (io.ReadCloser, error) {
	f.pushOpts = opts
	return io.NopCloser(strings.NewReader(f.pushBody)), nil
}

func (f *fakeImageAPI) RegistryLogin(_ context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error) {
	f.login = auth
	return registry.AuthenticateOKBody{Status: "Login Succeeded"}, nil
}

func buildDir(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM alpine\n"), 0o644))
	return dir
}

func TestBuildImage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := &fakeImageAPI{buildBody: `{"stream":"Step 1/1 : FROM alpine\n"}` + "\n" + `{"stream":"Successfully tagged app-demo:latest\n"}` + "\n"}
		a := &Adapter{cli: api}

		res, err := a.BuildImage(context.Background(), buildDir(t), "app-demo")
		require.NoError(t, err)
		assert.Equal(t, "app-demo", res.ImageName)
		assert.Contains(t, res.Output, "Successfully tagged")
		assert.Equal(t, []string{"app-demo"}, api.buildOpts.Tags)
	})

	t.Run("daemon error in stream", func(t *testing.T) {
		api := &fakeImageAPI{buildBody: `{"stream":"Step 1/2\n"}` + "\n" + `{"errorDetail":{"message":"pull access denied"},"error":"pull access denied"}` + "\n"}
		a := &Adapter{cli: api}

		res, err := a.BuildImage(context.Background(), buildDir(t), "app-demo")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pull access denied")
		assert.Contains(t, res.Output, "Step 1/2")
	})
}

func TestPushImage(t *testing.T) {
	api := &fakeImageAPI{pushBody: `{"status":"Pushed"}` + "\n"}
	a := &Adapter{cli: api}
	auth := domain.RegistryAuth{Username: "AWS", Password: "secret", ServerAddress: "123.dkr.ecr.us-east-1.amazonaws.com"}

	out, err := a.PushImage(context.Background(), "123.dkr.ecr.us-east-1.amazonaws.com/demo:latest", auth)
	require.NoError(t, err)
	assert.Contains(t, out, "Pushed")

	decoded, err := registry.DecodeAuthConfig(api.pushOpts.RegistryAuth)
	require.NoError(t, err)
	assert.Equal(t, "AWS", decoded.Username)
	assert.Equal(t, "secret", decoded.Password)
}

func TestTagAndLogin(t *testing.T) {
	api := &fakeImageAPI{}
	a := &Adapter{cli: api}

	require.NoError(t, a.TagImage(context.Background(), "app-demo", "repo/app-demo:latest"))
	assert.Equal(t, [2]string{"app-demo", "repo/app-demo:latest"}, api.tagged)

	require.NoError(t, a.Login(context.Background(), domain.RegistryAuth{Username: "AWS", ServerAddress: "r"}))
	assert.Equal(t, "r", api.login.ServerAddress)

	api.tagErr = errors.New("no such image")
	assert.ErrorContains(t, a.TagImage(context.Background(), "x", "y"), "no such image")
}
