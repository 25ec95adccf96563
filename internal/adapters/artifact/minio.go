// Package artifact archives generated build files in an S3 compatible bucket.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/melih/lighthouse-forge/internal/config"
	"github.com/melih/lighthouse-forge/internal/core/ports"
)

type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
	now        func() time.Time
}

// New returns the bucket store when archiving is enabled, Noop otherwise.
func New(cfg config.ArtifactConfig) (ports.ArtifactStore, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return NewS3Store(cfg)
}

func NewS3Store(cfg config.ArtifactConfig) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{client: client, bucketName: bucket, region: region, now: time.Now}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Put stores one version of a generated file and returns its object key.
func (s *S3Store) Put(ctx context.Context, repo, name string, content []byte) (string, error) {
	if strings.TrimSpace(repo) == "" || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("repo and name are required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := objectKey(repo, s.now(), uuid.NewString(), name)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

func objectKey(repo string, at time.Time, id, name string) string {
	version := at.UTC().Format("20060102T150405Z") + "-" + id[:8]
	return path.Join(strings.Trim(repo, "/"), version, path.Base(name))
}

func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Noop discards artifacts.
type Noop struct{}

func (Noop) Put(context.Context, string, string, []byte) (string, error) { return "", nil }
