package service

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/samoht625/cursor-eng-ctx/internal/domain"
	"github.com/samoht625/cursor-eng-ctx/internal/port"
)

// Reconstructor rebuilds one logical change-unit ("PR") from a merge
// candidate and its constituent commits.
type Reconstructor struct {
	source port.CommitSource
}

// NewReconstructor creates a new merge reconstructor.
func NewReconstructor(source port.CommitSource) *Reconstructor {
	return &Reconstructor{source: source}
}

// Reconstruct produces zero or one ReconstructedChange for a candidate.
// A nil change (with nil error) means the candidate is invisible to the
// tracked-user set and is dropped.
func (r *Reconstructor) Reconstruct(ctx context.Context, repoPath string, cand domain.MergeCandidate, tracked map[string]bool) (*domain.ReconstructedChange, error) {
	mergeAuthorTracked := tracked[cand.Author]

	// Merge commit body, for the full message. Detail failures degrade to
	// a subject-only message and zero stats, never abort the candidate.
	detail, err := r.source.CommitDetail(ctx, repoPath, cand.Hash)
	if err != nil {
		slog.Debug("commit detail unavailable", "hash", cand.Hash, "error", err)
		detail = nil
	}

	fullMessage := cand.Subject
	if detail != nil {
		if body := strings.TrimSpace(detail.Body); body != "" {
			fullMessage += "\n\n" + body
		}
	}

	// Squashed PR: the commit is its own sole constituent.
	if !cand.IsTraditionalMerge {
		if !mergeAuthorTracked {
			return nil, nil
		}

		ch := &domain.ReconstructedChange{
			MergeHash:       cand.Hash,
			Subject:         cand.Subject,
			FullMessage:     fullMessage,
			MergeDate:       cand.Date,
			PrimaryAuthor:   cand.Author,
			CommitsCount:    1,
			FirstCommitDate: cand.Date,
			LastCommitDate:  cand.Date,
			RepoPath:        repoPath,
			Commits: []domain.RawCommit{{
				Hash:      cand.Hash,
				Author:    cand.Author,
				Timestamp: cand.Date,
				Subject:   cand.Subject,
			}},
		}
		if detail != nil {
			ch.Additions = detail.Additions
			ch.Deletions = detail.Deletions
			ch.FilesChanged = detail.FilesChanged
		}
		return ch, nil
	}

	parent, err := r.source.FirstParent(ctx, repoPath, cand.Hash)
	if err != nil {
		return nil, err
	}
	if parent == "" {
		return r.degenerate(cand, fullMessage, repoPath, mergeAuthorTracked), nil
	}

	constituents, err := r.source.CommitsInRange(ctx, repoPath, parent, cand.Hash)
	if err != nil {
		slog.Warn("range listing failed, treating as empty", "hash", cand.Hash, "error", err)
		constituents = nil
	}
	if len(constituents) == 0 {
		return r.degenerate(cand, fullMessage, repoPath, mergeAuthorTracked), nil
	}

	var trackedCommits []domain.RawCommit
	for _, c := range constituents {
		if tracked[c.Author] {
			trackedCommits = append(trackedCommits, c)
		}
	}

	if !mergeAuthorTracked && len(trackedCommits) == 0 {
		return nil, nil
	}

	// Timing and authorship come from the tracked subset when non-empty;
	// size metrics always cover every constituent. Asymmetric on purpose.
	relevant := trackedCommits
	if len(relevant) == 0 {
		relevant = constituents
	}
	relevant = append([]domain.RawCommit(nil), relevant...)
	sort.Slice(relevant, func(i, j int) bool {
		return relevant[i].Timestamp.Before(relevant[j].Timestamp)
	})

	first := relevant[0]
	last := relevant[len(relevant)-1]

	ch := &domain.ReconstructedChange{
		MergeHash:        cand.Hash,
		Subject:          cand.Subject,
		FullMessage:      fullMessage,
		MergeDate:        cand.Date,
		PrimaryAuthor:    first.Author,
		Commits:          relevant,
		CommitsCount:     len(relevant),
		FirstCommitDate:  first.Timestamp,
		LastCommitDate:   last.Timestamp,
		DevelopmentHours: roundHours(last.Timestamp.Sub(first.Timestamp).Hours()),
		ReviewHours:      roundHours(cand.Date.Sub(last.Timestamp).Hours()),
		RepoPath:         repoPath,
	}

	for _, c := range constituents {
		d, err := r.source.CommitDetail(ctx, repoPath, c.Hash)
		if err != nil {
			slog.Debug("constituent stats unavailable", "hash", c.Hash, "error", err)
			continue
		}
		ch.Additions += d.Additions
		ch.Deletions += d.Deletions
		if d.FilesChanged > ch.FilesChanged {
			ch.FilesChanged = d.FilesChanged
		}
	}

	return ch, nil
}

// degenerate emits the zero-stat form used when a merge has no resolvable
// parent or an empty commit range: visible only via the merge author.
func (r *Reconstructor) degenerate(cand domain.MergeCandidate, fullMessage, repoPath string, mergeAuthorTracked bool) *domain.ReconstructedChange {
	if !mergeAuthorTracked {
		return nil
	}
	return &domain.ReconstructedChange{
		MergeHash:       cand.Hash,
		Subject:         cand.Subject,
		FullMessage:     fullMessage,
		MergeDate:       cand.Date,
		PrimaryAuthor:   cand.Author,
		CommitsCount:    1,
		FirstCommitDate: cand.Date,
		LastCommitDate:  cand.Date,
		RepoPath:        repoPath,
	}
}

// roundHours rounds to two decimals. Negative values pass through: commit
// clocks out of order are telemetry, not an error.
func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
