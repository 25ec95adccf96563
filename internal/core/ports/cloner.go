package ports

import "context"

// Cloner fetches a repository into a local directory.
type Cloner interface {
	Clone(ctx context.Context, repoURL, dest string) error
}
