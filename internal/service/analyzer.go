package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samoht625/cursor-eng-ctx/internal/domain"
	"github.com/samoht625/cursor-eng-ctx/internal/port"
)

// Analyzer runs the full pipeline: discover tracked users, list merge
// candidates, reconstruct changes, resolve revert chains, score, persist.
// Strictly sequential; per-item failures degrade, whole-run preconditions
// abort.
type Analyzer struct {
	source        port.CommitSource
	reconstructor *Reconstructor
	scoring       *ScoringService
	sink          port.AnalysisSink
}

// NewAnalyzer wires the pipeline from its collaborators.
func NewAnalyzer(source port.CommitSource, scorer port.Scorer, cache port.ResponseCache, sink port.AnalysisSink) *Analyzer {
	return &Analyzer{
		source:        source,
		reconstructor: NewReconstructor(source),
		scoring:       NewScoringService(scorer, cache, source),
		sink:          sink,
	}
}

// RunSummary reports what one analysis run did.
type RunSummary struct {
	TrackedUsers  []string
	Candidates    int
	Reconstructed int
	ZeroScored    int
	Scored        int
	CacheHits     int
	Persisted     int
}

// Run executes one analysis over repoPath since the given date. Empty
// stages stop the run early with port.ErrNoData (informational, not a
// failure).
func (a *Analyzer) Run(ctx context.Context, repoPath string, since time.Time, includeDiff bool) ([]*domain.ReconstructedChange, *RunSummary, error) {
	users, err := a.source.Authors(ctx, repoPath, since)
	if err != nil {
		return nil, nil, fmt.Errorf("discover tracked users: %w", err)
	}
	if len(users) == 0 {
		return nil, nil, fmt.Errorf("no users found in repository for the date range: %w", port.ErrNoData)
	}

	tracked := make(map[string]bool, len(users))
	for _, u := range users {
		tracked[u] = true
	}
	summary := &RunSummary{TrackedUsers: users}

	slog.Info("fetching merge commits", "repo", repoPath, "since", since.Format("2006-01-02"))
	candidates, err := a.source.MergeCandidates(ctx, repoPath, since)
	if err != nil {
		return nil, nil, fmt.Errorf("list merge candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, summary, fmt.Errorf("no merge commits found since the date: %w", port.ErrNoData)
	}
	summary.Candidates = len(candidates)
	slog.Info("found merge candidates", "count", len(candidates))

	var changes []*domain.ReconstructedChange
	for _, cand := range candidates {
		ch, err := a.reconstructor.Reconstruct(ctx, repoPath, cand, tracked)
		if err != nil {
			return nil, nil, fmt.Errorf("reconstruct %s: %w", cand.Hash, err)
		}
		if ch == nil {
			continue
		}
		slog.Info("reconstructed change",
			"hash", ch.MergeHash, "author", ch.PrimaryAuthor, "commits", ch.CommitsCount)
		changes = append(changes, ch)
	}
	if len(changes) == 0 {
		return nil, summary, fmt.Errorf("no merges involve the tracked users: %w", port.ErrNoData)
	}
	summary.Reconstructed = len(changes)

	changes = ResolveRevertChains(changes)

	stats := a.scoring.ScoreAll(ctx, changes, includeDiff)
	summary.Scored = stats.Scored
	summary.CacheHits = stats.CacheHits
	summary.ZeroScored = stats.Skipped

	for _, ch := range changes {
		if err := a.sink.UpsertAnalysis(ctx, ch); err != nil {
			return nil, nil, fmt.Errorf("persist %s: %w", ch.MergeHash, err)
		}
		summary.Persisted++
	}
	slog.Info("analysis complete",
		"persisted", summary.Persisted, "scored", summary.Scored,
		"cache_hits", summary.CacheHits, "chain_links", summary.ZeroScored)

	return changes, summary, nil
}
