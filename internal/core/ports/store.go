package ports

import (
	"context"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

// RepoStore persists one RepoRecord per repository name.
type RepoStore interface {
	// Store writes rec under name, replacing any existing record.
	Store(ctx context.Context, name string, rec domain.RepoRecord) error
	// Get returns domain.ErrNotFound when no record exists.
	Get(ctx context.Context, name string) (domain.RepoRecord, error)
	All(ctx context.Context) (map[string]domain.RepoRecord, error)
	Delete(ctx context.Context, name string) error
	// Update applies fn to the stored record and writes it back.
	Update(ctx context.Context, name string, fn func(*domain.RepoRecord)) (domain.RepoRecord, error)
	Close() error
}
