package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-forge/internal/config"
	"github.com/melih/lighthouse-forge/internal/core/domain"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("store and get", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "repoDB.json")
		s := NewFileStore(path)

		require.NoError(t, s.Store(ctx, "demo", domain.RepoRecord{AIAnalysis: "raw text", Model: "m"}))
		rec, err := s.Get(ctx, "demo")
		require.NoError(t, err)
		assert.Equal(t, "demo", rec.RepoName)
		assert.Equal(t, "raw text", rec.AIAnalysis)
		assert.Equal(t, int64(1), rec.Version)
		assert.False(t, rec.UpdatedAt.IsZero())

		var doc map[string]map[string]any
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, &doc))
		assert.Equal(t, "raw text", doc["demo"]["ai_analysis"])
		assert.Equal(t, "m", doc["demo"]["bedrock_model"])
	})

	t.Run("last write wins and bumps version", func(t *testing.T) {
		s := NewFileStore(filepath.Join(t.TempDir(), "repoDB.json"))
		require.NoError(t, s.Store(ctx, "demo", domain.RepoRecord{AIAnalysis: "first"}))
		require.NoError(t, s.Store(ctx, "demo", domain.RepoRecord{AIAnalysis: "second"}))

		rec, err := s.Get(ctx, "demo")
		require.NoError(t, err)
		assert.Equal(t, "second", rec.AIAnalysis)
		assert.Equal(t, int64(2), rec.Version)
	})

	t.Run("missing record", func(t *testing.T) {
		s := NewFileStore(filepath.Join(t.TempDir(), "repoDB.json"))
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "nope"), domain.ErrNotFound)
		_, err = s.Update(ctx, "nope", func(*domain.RepoRecord) {})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("survives reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "repoDB.json")
		require.NoError(t, NewFileStore(path).Store(ctx, "a", domain.RepoRecord{ImageName: "app-a"}))
		require.NoError(t, NewFileStore(path).Store(ctx, "b", domain.RepoRecord{ImageName: "app-b"}))

		all, err := NewFileStore(path).All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.Equal(t, "app-a", all["a"].ImageName)

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files must not be left behind")
	})

	t.Run("delete", func(t *testing.T) {
		s := NewFileStore(filepath.Join(t.TempDir(), "repoDB.json"))
		require.NoError(t, s.Store(ctx, "demo", domain.RepoRecord{}))
		require.NoError(t, s.Delete(ctx, "demo"))
		_, err := s.Get(ctx, "demo")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		s := NewFileStore(filepath.Join(t.TempDir(), "repoDB.json"))
		require.NoError(t, s.Store(ctx, "demo", domain.RepoRecord{}))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Update(ctx, "demo", func(r *domain.RepoRecord) {
					r.Structure += "x"
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		rec, err := s.Get(ctx, "demo")
		require.NoError(t, err)
		assert.Len(t, rec.Structure, 20)
		assert.Equal(t, int64(21), rec.Version)
	})

	t.Run("corrupt document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "repoDB.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := NewFileStore(path).Get(ctx, "demo")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestNew(t *testing.T) {
	s, err := New(config.StoreConfig{Driver: "file", Path: filepath.Join(t.TempDir(), "db.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = New(config.StoreConfig{Driver: "bolt"})
	assert.Error(t, err)
}
