package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

// Runs only against a live database: FORGE_TEST_PG_DSN=postgres://...
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("FORGE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("FORGE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(dsn, 8)
	require.NoError(t, err)
	defer s.Close()

	name := "forge-test-repo"
	_ = s.Delete(ctx, name)

	require.NoError(t, s.Store(ctx, name, domain.RepoRecord{AIAnalysis: "raw"}))
	rec, err := s.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "raw", rec.AIAnalysis)
	assert.Equal(t, int64(1), rec.Version)

	rec, err = s.Update(ctx, name, func(r *domain.RepoRecord) { r.ImageName = "app-forge-test-repo" })
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "app-forge-test-repo", all[name].ImageName)

	require.NoError(t, s.Delete(ctx, name))
	_, err = s.Get(ctx, name)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
