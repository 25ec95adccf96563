// Package registry pushes built images to Amazon ECR.
package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"github.com/melih/lighthouse-forge/internal/config"
	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/logger"
)

type ecrAPI interface {
	CreateRepository(ctx context.Context, params *ecr.CreateRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error)
	GetAuthorizationToken(ctx context.Context, params *ecr.GetAuthorizationTokenInput, optFns ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error)
}

// ECR implements ports.Registry.
type ECR struct {
	cfg     config.RegistryConfig
	api     ecrAPI
	builder ports.BuilderService
}

// NewECR builds an ECR client from static credentials. Missing credentials
// are reported by Push, not here.
func NewECR(ctx context.Context, cfg config.RegistryConfig, builder ports.BuilderService) (*ECR, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return &ECR{cfg: cfg, api: ecr.NewFromConfig(awsCfg), builder: builder}, nil
}

// RepositoryName is the ECR repository an image is pushed to: the image
// name before any tag, lowercased.
func RepositoryName(imageName string) string {
	name, _, _ := strings.Cut(imageName, ":")
	return strings.ToLower(name)
}

func (r *ECR) registryHost() string {
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", r.cfg.AccountID, r.cfg.Region)
}

// Push creates the repository if needed, logs in with a fresh token and
// pushes imageName as <registry>/<repo>:latest.
func (r *ECR) Push(ctx context.Context, imageName string) (domain.PushResult, error) {
	if r.cfg.AccessKeyID == "" || r.cfg.SecretAccessKey == "" || r.cfg.AccountID == "" {
		return domain.PushResult{}, domain.ErrMissingCredentials
	}
	if strings.TrimSpace(imageName) == "" {
		return domain.PushResult{}, fmt.Errorf("%w: image name is required", domain.ErrInvalidInput)
	}

	repo := RepositoryName(imageName)
	log := logger.With().Str("image", imageName).Str("repository", repo).Logger()

	_, err := r.api.CreateRepository(ctx, &ecr.CreateRepositoryInput{RepositoryName: aws.String(repo)})
	var exists *types.RepositoryAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return domain.PushResult{}, domain.Stage(domain.StageEnsureRepository, err)
	}

	auth, err := r.authorize(ctx)
	if err != nil {
		return domain.PushResult{}, domain.Stage(domain.StageAuthorize, err)
	}

	if err := r.builder.Login(ctx, auth); err != nil {
		return domain.PushResult{}, domain.Stage(domain.StageLogin, err)
	}

	target := fmt.Sprintf("%s/%s:latest", r.registryHost(), repo)
	if err := r.builder.TagImage(ctx, imageName, target); err != nil {
		return domain.PushResult{}, domain.Stage(domain.StageTag, err)
	}

	log.Info().Str("target", target).Msg("pushing image to ECR")
	if _, err := r.builder.PushImage(ctx, target, auth); err != nil {
		return domain.PushResult{}, domain.Stage(domain.StagePush, err)
	}

	return domain.PushResult{
		URI:            target,
		RepositoryName: repo,
		Message:        fmt.Sprintf("Successfully pushed %s to %s", imageName, target),
	}, nil
}

func (r *ECR) authorize(ctx context.Context) (domain.RegistryAuth, error) {
	out, err := r.api.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return domain.RegistryAuth{}, err
	}
	if len(out.AuthorizationData) == 0 || out.AuthorizationData[0].AuthorizationToken == nil {
		return domain.RegistryAuth{}, errors.New("no authorization data returned")
	}
	decoded, err := base64.StdEncoding.DecodeString(aws.ToString(out.AuthorizationData[0].AuthorizationToken))
	if err != nil {
		return domain.RegistryAuth{}, fmt.Errorf("decode authorization token: %w", err)
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return domain.RegistryAuth{}, errors.New("malformed authorization token")
	}
	return domain.RegistryAuth{
		Username:      user,
		Password:      pass,
		ServerAddress: "https://" + r.registryHost(),
	}, nil
}
