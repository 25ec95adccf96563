package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/melih/lighthouse-forge/internal/core/domain"
	"github.com/melih/lighthouse-forge/internal/core/ports"
	"github.com/melih/lighthouse-forge/internal/inspector"
	"github.com/melih/lighthouse-forge/internal/logger"
	"github.com/melih/lighthouse-forge/internal/oracle"
)

// Analyzer asks the oracle to describe a cloned repository and persists the
// answer.
type Analyzer struct {
	ws        *Workspace
	inspector *inspector.Inspector
	llm       ports.InferenceClient
	store     ports.RepoStore
}

func NewAnalyzer(ws *Workspace, insp *inspector.Inspector, llm ports.InferenceClient, store ports.RepoStore) *Analyzer {
	return &Analyzer{ws: ws, inspector: insp, llm: llm, store: store}
}

// Analyze inspects the checkout of repoURL and stores the oracle's analysis.
// The raw reply is always kept; the typed analysis only when the reply, or
// one repair round, yields JSON.
func (a *Analyzer) Analyze(ctx context.Context, repoURL string) (domain.RepoRecord, error) {
	name, err := RepoNameFromURL(repoURL)
	if err != nil {
		return domain.RepoRecord{}, err
	}
	unlock := a.ws.Lock(name)
	defer unlock()

	path, err := a.ws.Locate(name)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.RepoRecord{}, fmt.Errorf("%w: repository not found. Please clone it first", domain.ErrNotFound)
	}
	if err != nil {
		return domain.RepoRecord{}, err
	}

	structure := a.inspector.Summarize(path).String()
	raw, err := a.llm.Complete(ctx, oracle.AnalysisPrompt(name, a.inspector.Describe(path)))
	if err != nil {
		return domain.RepoRecord{}, fmt.Errorf("analysis failed: %w", err)
	}

	rec := domain.RepoRecord{
		RepoName:    name,
		ProjectPath: path,
		Structure:   structure,
		AIAnalysis:  raw,
		Analysis:    a.parse(ctx, name, raw),
		Model:       a.llm.Model(),
	}
	if err := a.store.Store(ctx, name, rec); err != nil {
		logger.Errorf("failed to persist analysis of %s: %v", name, err)
	}
	return rec, nil
}

func (a *Analyzer) parse(ctx context.Context, name, raw string) *domain.ProjectAnalysis {
	analysis, err := oracle.ParseAnalysis(raw)
	if err == nil {
		return analysis
	}
	logger.Warnf("analysis of %s is not JSON, asking for a restructured reply", name)

	repaired, err := a.llm.Complete(ctx, oracle.RepairPrompt(raw))
	if err != nil {
		logger.Warnf("analysis repair for %s failed: %v", name, err)
		return nil
	}
	analysis, err = oracle.ParseAnalysis(repaired)
	if err != nil {
		logger.Warnf("analysis of %s kept as raw text: %v", name, err)
		return nil
	}
	return analysis
}
