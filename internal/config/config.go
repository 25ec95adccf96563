package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen    string          `yaml:"listen" validate:"required"`
	Workspace string          `yaml:"workspace" validate:"required"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Inference InferenceConfig `yaml:"inference"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Registry  RegistryConfig  `yaml:"registry"`
	Artifacts ArtifactConfig  `yaml:"artifacts"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

type StoreConfig struct {
	Driver    string `yaml:"driver" validate:"oneof=file postgres"`
	Path      string `yaml:"path" validate:"required_if=Driver file"`
	DSN       string `yaml:"dsn" validate:"required_if=Driver postgres"`
	CacheSize int    `yaml:"cache_size" validate:"gte=0"`
}

type InferenceConfig struct {
	Provider    string  `yaml:"provider" validate:"oneof=bedrock azure gemini openai"`
	Model       string  `yaml:"model" validate:"required"`
	Region      string  `yaml:"region"`
	Endpoint    string  `yaml:"endpoint" validate:"required_if=Provider azure"`
	APIKey      string  `yaml:"api_key"`
	Deployment  string  `yaml:"deployment"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gte=0"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

type PipelineConfig struct {
	CheckDeprecatedImages bool          `yaml:"check_deprecated_images"`
	CloneTimeout          time.Duration `yaml:"clone_timeout"`
	DaemonTimeout         time.Duration `yaml:"daemon_timeout"`
	RespectGitignore      bool          `yaml:"respect_gitignore"`
}

type RegistryConfig struct {
	Region          string `yaml:"region"`
	AccountID       string `yaml:"account_id"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint" validate:"required_if=Enabled true"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket" validate:"required_if=Enabled true"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Listen:    ":8000",
		Workspace: "cloned_repos",
		Log:       LogConfig{Level: "info", Format: "text"},
		Store:     StoreConfig{Driver: "file", Path: "repoDB.json", CacheSize: 256},
		Inference: InferenceConfig{
			Provider:    "bedrock",
			Model:       "amazon.nova-lite-v1:0",
			Region:      "us-east-1",
			MaxTokens:   2000,
			Temperature: 0.1,
		},
		Pipeline: PipelineConfig{
			CheckDeprecatedImages: true,
			CloneTimeout:          300 * time.Second,
			DaemonTimeout:         5 * time.Second,
		},
		Registry:  RegistryConfig{Region: "us-east-1"},
		Artifacts: ArtifactConfig{Region: "us-east-1", Bucket: "lighthouse-forge-artifacts"},
		Telemetry: TelemetryConfig{ServiceName: "lighthouse-forge"},
	}
}

// Load reads .env, then the YAML file at path (when it exists), then the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if strings.HasPrefix(port, ":") {
			cfg.Listen = port
		} else {
			cfg.Listen = ":" + port
		}
	}
	cfg.Workspace = firstNonEmpty(env("FORGE_WORKSPACE"), cfg.Workspace)
	cfg.Log.Level = firstNonEmpty(env("LOG_LEVEL"), cfg.Log.Level)
	cfg.Log.Format = firstNonEmpty(env("LOG_FORMAT"), cfg.Log.Format)

	if dsn := env("REPO_STORE_PG_DSN"); dsn != "" {
		cfg.Store.Driver = "postgres"
		cfg.Store.DSN = dsn
	}
	cfg.Store.Path = firstNonEmpty(env("REPO_STORE_PATH"), cfg.Store.Path)

	cfg.Inference.Provider = firstNonEmpty(env("INFERENCE_PROVIDER"), cfg.Inference.Provider)
	cfg.Inference.Model = firstNonEmpty(env("INFERENCE_MODEL"), cfg.Inference.Model)
	cfg.Inference.Region = firstNonEmpty(env("AWS_DEFAULT_REGION"), cfg.Inference.Region)
	switch cfg.Inference.Provider {
	case "azure":
		cfg.Inference.Endpoint = firstNonEmpty(env("AZURE_OPENAI_ENDPOINT"), cfg.Inference.Endpoint)
		cfg.Inference.APIKey = firstNonEmpty(env("AZURE_OPENAI_KEY"), cfg.Inference.APIKey)
		cfg.Inference.Deployment = firstNonEmpty(env("AZURE_OPENAI_DEPLOYMENT_ID"), cfg.Inference.Deployment)
	case "gemini":
		cfg.Inference.APIKey = firstNonEmpty(env("GEMINI_API_KEY"), cfg.Inference.APIKey)
	case "openai":
		cfg.Inference.APIKey = firstNonEmpty(env("OPENAI_API_KEY"), cfg.Inference.APIKey)
		cfg.Inference.Endpoint = firstNonEmpty(env("OPENAI_BASE_URL"), cfg.Inference.Endpoint)
	}

	if raw := env("CHECK_DEPRECATED_IMAGES"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Pipeline.CheckDeprecatedImages = v
		}
	}

	cfg.Registry.Region = firstNonEmpty(env("AWS_DEFAULT_REGION"), cfg.Registry.Region)
	cfg.Registry.AccountID = firstNonEmpty(env("AWS_ACCOUNT_ID"), cfg.Registry.AccountID)
	cfg.Registry.AccessKeyID = firstNonEmpty(env("AWS_ACCESS_KEY_ID"), cfg.Registry.AccessKeyID)
	cfg.Registry.SecretAccessKey = firstNonEmpty(env("AWS_SECRET_ACCESS_KEY"), cfg.Registry.SecretAccessKey)

	if endpoint := env("ARTIFACT_S3_ENDPOINT"); endpoint != "" {
		cfg.Artifacts.Enabled = true
		cfg.Artifacts.Endpoint = endpoint
	}
	cfg.Artifacts.AccessKey = firstNonEmpty(env("ARTIFACT_S3_ACCESS_KEY"), env("MINIO_ROOT_USER"), cfg.Artifacts.AccessKey)
	cfg.Artifacts.SecretKey = firstNonEmpty(env("ARTIFACT_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD"), cfg.Artifacts.SecretKey)
	cfg.Artifacts.Bucket = firstNonEmpty(env("ARTIFACT_S3_BUCKET"), cfg.Artifacts.Bucket)

	cfg.Telemetry.OTLPEndpoint = firstNonEmpty(env("OTEL_EXPORTER_OTLP_ENDPOINT"), cfg.Telemetry.OTLPEndpoint)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
