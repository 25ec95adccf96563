package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS repo_records (
  repo_name TEXT PRIMARY KEY,
  record JSONB NOT NULL,
  version BIGINT NOT NULL DEFAULT 1,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`

// PostgresStore keeps one row per repository. Writes bump the version column;
// Update only succeeds against the version it read.
type PostgresStore struct {
	db    *sql.DB
	cache *lru.Cache[string, domain.RepoRecord]

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(dsn string, cacheSize int) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, domain.RepoRecord](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, cache: cache}, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, schema)
	})
	return s.schemaErr
}

func (s *PostgresStore) Store(ctx context.Context, name string, rec domain.RepoRecord) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	rec.RepoName = name
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
INSERT INTO repo_records (repo_name, record, version, updated_at)
VALUES ($1, $2, 1, NOW())
ON CONFLICT (repo_name)
DO UPDATE SET record = EXCLUDED.record,
  version = repo_records.version + 1,
  updated_at = NOW()
RETURNING version, updated_at`, name, body)
	if err := row.Scan(&rec.Version, &rec.UpdatedAt); err != nil {
		s.cache.Remove(name)
		return fmt.Errorf("store %q: %w", name, err)
	}
	s.cache.Add(name, rec)
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, name string) (domain.RepoRecord, error) {
	if rec, ok := s.cache.Get(name); ok {
		return rec, nil
	}
	rec, err := s.load(ctx, name)
	if err != nil {
		return domain.RepoRecord{}, err
	}
	s.cache.Add(name, rec)
	return rec, nil
}

func (s *PostgresStore) load(ctx context.Context, name string) (domain.RepoRecord, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return domain.RepoRecord{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT record, version, updated_at FROM repo_records WHERE repo_name = $1`, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RepoRecord{}, fmt.Errorf("repository %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.RepoRecord{}, fmt.Errorf("load %q: %w", name, err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.RepoRecord, error) {
	var (
		body []byte
		rec  domain.RepoRecord
	)
	var version int64
	if err := row.Scan(&body, &version, &rec.UpdatedAt); err != nil {
		return domain.RepoRecord{}, err
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return domain.RepoRecord{}, err
	}
	rec.Version = version
	return rec, nil
}

func (s *PostgresStore) All(ctx context.Context) (map[string]domain.RepoRecord, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT record, version, updated_at FROM repo_records`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.RepoRecord)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out[rec.RepoName] = rec
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	s.cache.Remove(name)
	res, err := s.db.ExecContext(ctx, `DELETE FROM repo_records WHERE repo_name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("repository %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

// Update reads the current row, applies fn and writes it back only if no
// other writer bumped the version meanwhile. A lost race is retried once
// from a fresh read before ErrVersionConflict is returned.
func (s *PostgresStore) Update(ctx context.Context, name string, fn func(*domain.RepoRecord)) (domain.RepoRecord, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var rec domain.RepoRecord
		rec, err = s.load(ctx, name)
		if err != nil {
			return domain.RepoRecord{}, err
		}
		if rec, err = s.compareAndSwap(ctx, name, rec, fn); err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return domain.RepoRecord{}, err
		}
	}
	return domain.RepoRecord{}, err
}

func (s *PostgresStore) compareAndSwap(ctx context.Context, name string, rec domain.RepoRecord, fn func(*domain.RepoRecord)) (domain.RepoRecord, error) {
	expected := rec.Version
	fn(&rec)
	rec.RepoName = name
	body, err := json.Marshal(rec)
	if err != nil {
		return domain.RepoRecord{}, fmt.Errorf("encode record: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
UPDATE repo_records
SET record = $2, version = version + 1, updated_at = NOW()
WHERE repo_name = $1 AND version = $3
RETURNING version, updated_at`, name, body, expected)
	if err := row.Scan(&rec.Version, &rec.UpdatedAt); err != nil {
		s.cache.Remove(name)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RepoRecord{}, fmt.Errorf("repository %q at version %d: %w", name, expected, domain.ErrVersionConflict)
		}
		return domain.RepoRecord{}, fmt.Errorf("update %q: %w", name, err)
	}
	s.cache.Add(name, rec)
	return rec, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
