// Package services holds the application use cases: cloning, analysis,
// containerization, compose rebuilds and source-to-image builds.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
)

var (
	validRepoName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	invalidRef    = regexp.MustCompile(`[^a-z0-9_.-]+`)
)

// Workspace maps repository names to directories under one root. Every
// repository gets its own directory and its own lock.
type Workspace struct {
	root   string
	cloner ports.Cloner
	locks  sync.Map
}

func NewWorkspace(root string, cloner ports.Cloner) *Workspace {
	return &Workspace{root: root, cloner: cloner}
}

func (w *Workspace) Root() string { return w.root }

// RepoNameFromURL returns the last path segment of a repository URL without
// its .git suffix.
func RepoNameFromURL(repoURL string) (string, error) {
	raw := strings.TrimSpace(repoURL)
	if raw == "" {
		return "", fmt.Errorf("%w: repo_url is required", domain.ErrInvalidInput)
	}
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	name := strings.TrimSuffix(p[strings.LastIndexAny(p, "/:")+1:], ".git")
	if err := ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: cannot derive repository name from %q", domain.ErrInvalidInput, repoURL)
	}
	return name, nil
}

// ValidateName rejects names that are empty or could escape the workspace.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || !validRepoName.MatchString(name) {
		return fmt.Errorf("%w: invalid repository name %q", domain.ErrInvalidInput, name)
	}
	return nil
}

// ImageName is the image built for a repository.
func ImageName(repo string) string { return "app-" + refName(repo) }

// ContainerName is the container started for a repository.
func ContainerName(repo string) string { return "container-" + refName(repo) }

func refName(repo string) string {
	s := invalidRef.ReplaceAllString(strings.ToLower(repo), "-")
	s = strings.Trim(s, "-._")
	if s == "" {
		return "project"
	}
	return s
}

// Path is the directory of a repository.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.root, name)
}

// Locate returns the absolute directory of an existing repository checkout.
func (w *Workspace) Locate(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	p, err := filepath.Abs(w.Path(name))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return "", fmt.Errorf("%w: project %q not found in cloned repositories", domain.ErrNotFound, name)
	}
	if err != nil {
		return "", err
	}
	return p, nil
}

// Lock serializes work on one repository and returns the unlock func.
func (w *Workspace) Lock(name string) func() {
	m, _ := w.locks.LoadOrStore(strings.Clone(name), &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CloneResult is reported by Clone.
type CloneResult struct {
	RepoName  string
	ClonePath string
}

// Clone fetches repoURL into its directory, replacing any earlier checkout.
func (w *Workspace) Clone(ctx context.Context, repoURL string) (CloneResult, error) {
	name, err := RepoNameFromURL(repoURL)
	if err != nil {
		return CloneResult{}, err
	}
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return CloneResult{}, fmt.Errorf("create workspace: %w", err)
	}

	unlock := w.Lock(name)
	defer unlock()

	dest := w.Path(name)
	if err := w.cloner.Clone(ctx, repoURL, dest); err != nil {
		return CloneResult{}, err
	}
	return CloneResult{RepoName: name, ClonePath: dest}, nil
}

// Remove deletes the checkout of a repository.
func (w *Workspace) Remove(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	unlock := w.Lock(name)
	defer unlock()
	return os.RemoveAll(w.Path(name))
}
