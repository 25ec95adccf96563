package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/inspector"
)

// Prompt markers used to route fake replies.
const (
	kindAnalysis   = "Analyze this repository"
	kindRepair     = "Restructure the following"
	kindDockerfile = "Write a production ready Dockerfile"
	kindRunCommand = "exact docker run command"
	kindDeprecated = "deprecated or end-of-life"
	kindCompose    = "Write a docker-compose.yml"
)

type fakeLLM struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	prompts []string
}

func newFakeLLM(replies map[string]string) *fakeLLM {
	return &fakeLLM{replies: replies, errs: map[string]error{}}
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	for _, kind := range []string{kindRepair, kindRunCommand, kindDeprecated, kindCompose, kindDockerfile, kindAnalysis} {
		if strings.Contains(prompt, kind) {
			if err := f.errs[kind]; err != nil {
				return "", err
			}
			return f.replies[kind], nil
		}
	}
	return "", fmt.Errorf("unexpected prompt: %.40s", prompt)
}

func (f *fakeLLM) Model() string { return "fake-model" }

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type memStore struct {
	mu   sync.Mutex
	recs map[string]domain.RepoRecord
	err  error
}

func newMemStore() *memStore { return &memStore{recs: map[string]domain.RepoRecord{}} }

func (s *memStore) Store(_ context.Context, name string, rec domain.RepoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	rec.Version = s.recs[name].Version + 1
	s.recs[name] = rec
	return nil
}

func (s *memStore) Get(_ context.Context, name string) (domain.RepoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[name]
	if !ok {
		return rec, domain.ErrNotFound
	}
	return rec, nil
}

func (s *memStore) All(context.Context) (map[string]domain.RepoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]domain.RepoRecord{}
	for k, v := range s.recs {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, name)
	return nil
}

func (s *memStore) Update(_ context.Context, name string, fn func(*domain.RepoRecord)) (domain.RepoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[name]
	if !ok {
		return rec, domain.ErrNotFound
	}
	fn(&rec)
	rec.Version++
	s.recs[name] = rec
	return rec, nil
}

func (s *memStore) Close() error { return nil }

type fakeContainers struct {
	mu       sync.Mutex
	calls    int
	pingErr  error
	runErr   error
	runs     []domain.RunSpec
	removed  []string
	stopped  []string
	listed   []domain.Container
	logsBody string
}

func (f *fakeContainers) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeContainers) Ping(context.Context) error { f.hit(); return f.pingErr }

func (f *fakeContainers) ListContainers(context.Context) ([]domain.Container, error) {
	f.hit()
	return f.listed, nil
}

func (f *fakeContainers) RunContainer(_ context.Context, spec domain.RunSpec) (string, error) {
	f.hit()
	f.runs = append(f.runs, spec)
	if f.runErr != nil {
		return "", f.runErr
	}
	return "cid-" + spec.Name, nil
}

func (f *fakeContainers) StopContainer(_ context.Context, id string) error {
	f.hit()
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeContainers) RemoveContainer(_ context.Context, id string) error {
	f.hit()
	f.removed = append(f.removed, id)
	return domain.ErrNotFound
}

func (f *fakeContainers) GetContainerLogs(context.Context, string) (io.ReadCloser, error) {
	f.hit()
	return io.NopCloser(strings.NewReader(f.logsBody)), nil
}

type fakeBuilder struct {
	calls    int
	buildErr error
	built    []string
}

func (f *fakeBuilder) BuildImage(_ context.Context, dir, image string) (domain.BuildResult, error) {
	f.calls++
	f.built = append(f.built, image)
	return domain.BuildResult{ImageName: image, Output: "Successfully built"}, f.buildErr
}

func (f *fakeBuilder) TagImage(context.Context, string, string) error { f.calls++; return nil }

func (f *fakeBuilder) Login(context.Context, domain.RegistryAuth) error { f.calls++; return nil }

func (f *fakeBuilder) PushImage(context.Context, string, domain.RegistryAuth) (string, error) {
	f.calls++
	return "", nil
}

type fakeRunner struct {
	mu      sync.Mutex
	results map[string]domain.CommandResult
	calls   [][]string
	dirs    []string
}

func (f *fakeRunner) Run(_ context.Context, argv []string, opts ...ports.RunOption) domain.CommandResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, argv)
	f.dirs = append(f.dirs, ports.ApplyRunOptions(opts...).Dir)
	key := strings.Join(argv[:min(2, len(argv))], " ")
	if res, ok := f.results[key]; ok {
		return res
	}
	return domain.CommandResult{Success: true}
}

type fakeRegistry struct {
	pushed []string
	err    error
}

func (f *fakeRegistry) Push(_ context.Context, image string) (domain.PushResult, error) {
	f.pushed = append(f.pushed, image)
	if f.err != nil {
		return domain.PushResult{}, f.err
	}
	return domain.PushResult{URI: "123.dkr.ecr.us-east-1.amazonaws.com/" + image + ":latest", RepositoryName: image}, nil
}

type memArtifacts struct {
	mu    sync.Mutex
	names []string
}

func (m *memArtifacts) Put(_ context.Context, repo, name string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, repo+"/"+name)
	return repo + "/v1/" + name, nil
}

type fakeCloner struct {
	files map[string]string
	err   error
}

func (f *fakeCloner) Clone(_ context.Context, _ string, dest string) error {
	if f.err != nil {
		return f.err
	}
	if err := os.RemoveAll(dest); err != nil {
		return err
	}
	for name, body := range f.files {
		p := filepath.Join(dest, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type harness struct {
	root       string
	ws         *Workspace
	llm        *fakeLLM
	store      *memStore
	containers *fakeContainers
	builder    *fakeBuilder
	runner     *fakeRunner
	registry   *fakeRegistry
	artifacts  *memArtifacts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	return &harness{
		root:       root,
		ws:         NewWorkspace(root, &fakeCloner{files: map[string]string{"app.py": "print('hi')\n"}}),
		llm:        newFakeLLM(map[string]string{}),
		store:      newMemStore(),
		containers: &fakeContainers{},
		builder:    &fakeBuilder{},
		runner:     &fakeRunner{results: map[string]domain.CommandResult{}},
		registry:   &fakeRegistry{},
		artifacts:  &memArtifacts{},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Workspace:  h.ws,
		Inspector:  inspector.New(),
		LLM:        h.llm,
		Store:      h.store,
		Containers: h.containers,
		Builder:    h.builder,
		Runner:     h.runner,
		Registry:   h.registry,
		Artifacts:  h.artifacts,
	}
}

// project creates a checkout with files and, when analysis is non-empty, its record.
func (h *harness) project(t *testing.T, name string, files map[string]string, analysis string) string {
	t.Helper()
	dir := filepath.Join(h.root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for f, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(body), 0o644))
	}
	if analysis != "" {
		require.NoError(t, h.store.Store(context.Background(), name, domain.RepoRecord{RepoName: name, ProjectPath: dir, AIAnalysis: analysis}))
	}
	return dir
}

var errBoom = errors.New("boom")
