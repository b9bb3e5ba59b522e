package port

import (
	"context"
	"time"

	"github.com/samoht625/cursor-eng-ctx/internal/domain"
)

// CommitSource abstracts version-control queries over a local repository.
// Implementations shell out to the VCS command-line tool; every operation
// tolerates empty results (nothing found is not an error).
type CommitSource interface {
	// MergeCandidates lists merge-like commits since a date: true merge
	// commits plus single commits whose subject carries a PR reference.
	MergeCandidates(ctx context.Context, repoPath string, since time.Time) ([]domain.MergeCandidate, error)

	// CommitDetail returns one commit's metadata, first body line, and
	// aggregate stats. Missing stats parse to zero.
	CommitDetail(ctx context.Context, repoPath, hash string) (*domain.RawCommit, error)

	// FirstParent resolves the first parent of a commit. Returns an empty
	// hash (not an error) when the commit has no parent.
	FirstParent(ctx context.Context, repoPath, hash string) (string, error)

	// CommitsInRange lists commits reachable from head but not from base,
	// metadata only (no stats).
	CommitsInRange(ctx context.Context, repoPath, base, head string) ([]domain.RawCommit, error)

	// Diff returns the unified diff of a single commit, truncated to
	// maxLines with a trailing truncation marker.
	Diff(ctx context.Context, repoPath, hash string, maxLines int) (string, error)

	// Authors returns the distinct non-merge commit authors since a date,
	// sorted. This is the tracked-user set for a run.
	Authors(ctx context.Context, repoPath string, since time.Time) ([]string, error)
}
