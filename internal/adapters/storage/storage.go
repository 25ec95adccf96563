// Package storage implements ports.RepoStore on a JSON file or on Postgres.
package storage

import (
	"fmt"

	"github.com/melih/lighthouse-forge/internal/config"
	"github.com/melih/lighthouse-forge/internal/core/ports"
)

// New opens the backend selected by cfg.Driver.
func New(cfg config.StoreConfig) (ports.RepoStore, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.Path), nil
	case "postgres":
		return NewPostgresStore(cfg.DSN, cfg.CacheSize)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
