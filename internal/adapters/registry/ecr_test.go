package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-forge/internal/config"
	"github.com/melih/lighthouse-forge/internal/core/domain"
)

type fakeECR struct {
	createErr error
	authErr   error
	token     string
	calls     int
}

func (f *fakeECR) CreateRepository(_ context.Context, _ *ecr.CreateRepositoryInput, _ ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error) {
	f.calls++
	return &ecr.CreateRepositoryOutput{}, f.createErr
}

func (f *fakeECR) GetAuthorizationToken(_ context.Context, _ *ecr.GetAuthorizationTokenInput, _ ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error) {
	f.calls++
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &ecr.GetAuthorizationTokenOutput{
		AuthorizationData: []types.AuthorizationData{{AuthorizationToken: aws.String(f.token)}},
	}, nil
}

type fakeBuilder struct {
	loginErr, tagErr, pushErr error
	login                     domain.RegistryAuth
	tagged, pushed            string
}

func (f *fakeBuilder) BuildImage(context.Context, string, string) (domain.BuildResult, error) {
	return domain.BuildResult{}, nil
}

func (f *fakeBuilder) TagImage(_ context.Context, _, target string) error {
	f.tagged = target
	return f.tagErr
}

func (f *fakeBuilder) Login(_ context.Context, auth domain.RegistryAuth) error {
	f.login = auth
	return f.loginErr
}

func (f *fakeBuilder) PushImage(_ context.Context, ref string, _ domain.RegistryAuth) (string, error) {
	f.pushed = ref
	return "pushed", f.pushErr
}

var fullCreds = config.RegistryConfig{Region: "eu-west-1", AccountID: "123456789012", AccessKeyID: "AKIA", SecretAccessKey: "s"}

func token(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestPush(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		api := &fakeECR{token: token("AWS:pw")}
		b := &fakeBuilder{}
		r := &ECR{cfg: fullCreds, api: api, builder: b}

		res, err := r.Push(ctx, "App-Demo:v1")
		require.NoError(t, err)
		assert.Equal(t, "123456789012.dkr.ecr.eu-west-1.amazonaws.com/app-demo:latest", res.URI)
		assert.Equal(t, "app-demo", res.RepositoryName)
		assert.Equal(t, res.URI, b.tagged)
		assert.Equal(t, res.URI, b.pushed)
		assert.Equal(t, "AWS", b.login.Username)
		assert.Equal(t, "pw", b.login.Password)
	})

	t.Run("missing credentials make no calls", func(t *testing.T) {
		for _, cfg := range []config.RegistryConfig{
			{AccessKeyID: "a", SecretAccessKey: "s"},
			{AccountID: "1", SecretAccessKey: "s"},
			{AccountID: "1", AccessKeyID: "a"},
		} {
			api := &fakeECR{}
			_, err := (&ECR{cfg: cfg, api: api, builder: &fakeBuilder{}}).Push(ctx, "app")
			assert.ErrorIs(t, err, domain.ErrMissingCredentials)
			assert.Zero(t, api.calls)
		}
	})

	t.Run("existing repository is fine", func(t *testing.T) {
		api := &fakeECR{token: token("AWS:pw"), createErr: &types.RepositoryAlreadyExistsException{Message: aws.String("exists")}}
		_, err := (&ECR{cfg: fullCreds, api: api, builder: &fakeBuilder{}}).Push(ctx, "app")
		assert.NoError(t, err)
	})

	t.Run("failures name their stage", func(t *testing.T) {
		boom := errors.New("boom")
		cases := []struct {
			stage   string
			api     *fakeECR
			builder *fakeBuilder
		}{
			{domain.StageEnsureRepository, &fakeECR{createErr: boom}, &fakeBuilder{}},
			{domain.StageAuthorize, &fakeECR{authErr: boom}, &fakeBuilder{}},
			{domain.StageAuthorize, &fakeECR{token: token("no-colon")}, &fakeBuilder{}},
			{domain.StageLogin, &fakeECR{token: token("AWS:pw")}, &fakeBuilder{loginErr: boom}},
			{domain.StageTag, &fakeECR{token: token("AWS:pw")}, &fakeBuilder{tagErr: boom}},
			{domain.StagePush, &fakeECR{token: token("AWS:pw")}, &fakeBuilder{pushErr: boom}},
		}
		for _, tc := range cases {
			_, err := (&ECR{cfg: fullCreds, api: tc.api, builder: tc.builder}).Push(ctx, "app")
			require.Error(t, err)
			assert.Equal(t, tc.stage, domain.StageOf(err))
			assert.Contains(t, err.Error(), tc.stage+" failed")
		}
	})
}

func TestRepositoryName(t *testing.T) {
	assert.Equal(t, "app-demo", RepositoryName("App-Demo:latest"))
	assert.Equal(t, "plain", RepositoryName("plain"))
}
