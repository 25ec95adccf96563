package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/melih/lighthouse-forge/internal/core/domain"
)

// FileStore keeps every record in one JSON document keyed by repository name.
// The whole document is rewritten on each write.
type FileStore struct {
	path string

	loadOnce sync.Once
	loadErr  error
	mu       sync.Mutex
	byName   map[string]domain.RepoRecord

	now func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		byName: make(map[string]domain.RepoRecord),
		now:    time.Now,
	}
}

func (s *FileStore) ensureLoaded() error {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			s.loadErr = fmt.Errorf("read %s: %w", s.path, err)
			return
		}
		if len(b) == 0 {
			return
		}
		if err := json.Unmarshal(b, &s.byName); err != nil {
			s.loadErr = fmt.Errorf("decode %s: %w", s.path, err)
		}
	})
	return s.loadErr
}

// save must be called with mu held.
func (s *FileStore) save() error {
	b, err := json.MarshalIndent(s.byName, "", "  ")
	if err != nil {
		return fmt.Errorf("encode repo store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Store(_ context.Context, name string, rec domain.RepoRecord) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.byName[name]
	rec.RepoName = name
	rec.Version = prev.Version + 1
	rec.UpdatedAt = s.now().UTC()
	s.byName[name] = rec
	return s.save()
}

func (s *FileStore) Get(_ context.Context, name string) (domain.RepoRecord, error) {
	if err := s.ensureLoaded(); err != nil {
		return domain.RepoRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byName[name]
	if !ok {
		return domain.RepoRecord{}, fmt.Errorf("repository %q: %w", name, domain.ErrNotFound)
	}
	return rec, nil
}

func (s *FileStore) All(_ context.Context) (map[string]domain.RepoRecord, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.RepoRecord, len(s.byName))
	for k, v := range s.byName {
		out[k] = v
	}
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; !ok {
		return fmt.Errorf("repository %q: %w", name, domain.ErrNotFound)
	}
	delete(s.byName, name)
	return s.save()
}

// Update runs fn and the write under the store lock, so concurrent updates
// never lose each other's changes.
func (s *FileStore) Update(_ context.Context, name string, fn func(*domain.RepoRecord)) (domain.RepoRecord, error) {
	if err := s.ensureLoaded(); err != nil {
		return domain.RepoRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byName[name]
	if !ok {
		return domain.RepoRecord{}, fmt.Errorf("repository %q: %w", name, domain.ErrNotFound)
	}
	fn(&rec)
	rec.RepoName = name
	rec.Version++
	rec.UpdatedAt = s.now().UTC()
	s.byName[name] = rec
	if err := s.save(); err != nil {
		return domain.RepoRecord{}, err
	}
	return rec, nil
}

func (s *FileStore) Close() error { return nil }
