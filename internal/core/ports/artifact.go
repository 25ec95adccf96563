package ports

import "context"

// ArtifactStore archives generated build files, one object per version.
type ArtifactStore interface {
	Put(ctx context.Context, repo, name string, content []byte) (string, error)
}
