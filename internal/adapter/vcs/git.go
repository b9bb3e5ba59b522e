package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samoht625/cursor-eng-ctx/internal/domain"
)

// isoDateLayout matches git's --date=iso output.
const isoDateLayout = "2006-01-02 15:04:05 -0700"

// prRefPattern matches an issue/PR reference like "#12345" in a subject.
var prRefPattern = regexp.MustCompile(`#\d+`)

// GitSource implements port.CommitSource using the git CLI.
type GitSource struct{}

// NewGitSource creates a new git-backed commit source.
func NewGitSource() *GitSource {
	return &GitSource{}
}

// run executes a git command inside repoPath and returns trimmed stdout.
func (g *GitSource) run(ctx context.Context, repoPath string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", repoPath}, args...)...)
	output, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(string(output)), nil
}

// MergeCandidates lists merge-like commits since a date: traditional merge
// commits first, then squashed single commits whose subject carries a PR
// reference and that were not already listed as merges.
func (g *GitSource) MergeCandidates(ctx context.Context, repoPath string, since time.Time) ([]domain.MergeCandidate, error) {
	sinceStr := since.Format("2006-01-02")

	mergeOut, err := g.run(ctx, repoPath, "log", "--merges",
		"--since", sinceStr, "--pretty=format:%H|%an|%ad|%s", "--date=iso")
	if err != nil {
		return nil, fmt.Errorf("list merge commits: %w", err)
	}

	seen := make(map[string]bool)
	candidates := parseCandidates(mergeOut, true, seen, false)

	squashOut, err := g.run(ctx, repoPath, "log",
		"--since", sinceStr, "--pretty=format:%H|%an|%ad|%s", "--date=iso", "--grep=#[0-9]")
	if err != nil {
		return nil, fmt.Errorf("list squashed PR commits: %w", err)
	}

	candidates = append(candidates, parseCandidates(squashOut, false, seen, true)...)
	return candidates, nil
}

// parseCandidates parses "%H|%an|%ad|%s" log lines into merge candidates.
// Hashes already in seen are skipped; new ones are added to it. With
// requirePRRef set, lines whose subject lacks an issue reference are dropped.
func parseCandidates(output string, traditional bool, seen map[string]bool, requirePRRef bool) []domain.MergeCandidate {
	var candidates []domain.MergeCandidate

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}

		hash, author, dateStr, subject := parts[0], parts[1], parts[2], parts[3]
		if seen[hash] {
			continue
		}

		date, err := time.Parse(isoDateLayout, dateStr)
		if err != nil {
			continue
		}

		if requirePRRef && !prRefPattern.MatchString(subject) {
			continue
		}

		seen[hash] = true
		candidates = append(candidates, domain.MergeCandidate{
			Hash:               hash,
			Author:             author,
			Date:               date,
			Subject:            subject,
			IsTraditionalMerge: traditional,
		})
	}

	return candidates
}

// CommitDetail returns one commit's metadata and aggregate stat line.
func (g *GitSource) CommitDetail(ctx context.Context, repoPath, hash string) (*domain.RawCommit, error) {
	output, err := g.run(ctx, repoPath, "show", "--stat",
		"--format=format:%H|%an|%ae|%ad|%s|%b", "--date=iso", hash)
	if err != nil {
		return nil, fmt.Errorf("show commit %s: %w", hash, err)
	}
	return parseCommitDetail(output)
}

// parseCommitDetail parses `git show --stat` output: a pipe-separated header
// line followed by per-file stats and a shortstat summary.
func parseCommitDetail(output string) (*domain.RawCommit, error) {
	lines := strings.Split(output, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("empty commit detail")
	}

	parts := strings.SplitN(lines[0], "|", 6)
	if len(parts) < 5 {
		return nil, fmt.Errorf("malformed commit header: %q", lines[0])
	}

	commit := &domain.RawCommit{
		Hash:    parts[0],
		Author:  parts[1],
		Email:   parts[2],
		Subject: parts[4],
	}
	if len(parts) > 5 {
		commit.Body = parts[5]
	}

	ts, err := time.Parse(isoDateLayout, parts[3])
	if err != nil {
		ts = time.Now()
	}
	commit.Timestamp = ts

	for _, line := range lines {
		if strings.Contains(line, "file changed") || strings.Contains(line, "files changed") {
			commit.FilesChanged, commit.Additions, commit.Deletions = parseShortstat(line)
			break
		}
	}

	return commit, nil
}

// parseShortstat parses a line like
// " 3 files changed, 45 insertions(+), 12 deletions(-)".
func parseShortstat(line string) (files, additions, deletions int) {
	parts := strings.Split(line, ",")
	if len(parts) == 0 {
		return 0, 0, 0
	}

	if fields := strings.Fields(parts[0]); len(fields) > 0 {
		files, _ = strconv.Atoi(fields[0])
	}

	for _, part := range parts[1:] {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		switch {
		case strings.Contains(part, "insertion"):
			additions = n
		case strings.Contains(part, "deletion"):
			deletions = n
		}
	}

	return files, additions, deletions
}

// FirstParent resolves the first parent of a commit. A root commit has no
// parent; git errors on "<hash>^" in that case and we report no parent.
func (g *GitSource) FirstParent(ctx context.Context, repoPath, hash string) (string, error) {
	output, err := g.run(ctx, repoPath, "log", "--pretty=format:%H", "-n", "1", hash+"^")
	if err != nil {
		return "", nil
	}
	return output, nil
}

// CommitsInRange lists commits in base..head with metadata only.
func (g *GitSource) CommitsInRange(ctx context.Context, repoPath, base, head string) ([]domain.RawCommit, error) {
	output, err := g.run(ctx, repoPath, "log",
		"--pretty=format:%H|%an|%ae|%ad|%s", "--date=iso", base+".."+head)
	if err != nil {
		return nil, fmt.Errorf("list commits %s..%s: %w", base, head, err)
	}
	return parseRangeCommits(output), nil
}

// parseRangeCommits parses "%H|%an|%ae|%ad|%s" log lines.
func parseRangeCommits(output string) []domain.RawCommit {
	var commits []domain.RawCommit

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "|", 5)
		if len(parts) != 5 {
			continue
		}

		ts, err := time.Parse(isoDateLayout, parts[3])
		if err != nil {
			continue
		}

		commits = append(commits, domain.RawCommit{
			Hash:      parts[0],
			Author:    parts[1],
			Email:     parts[2],
			Timestamp: ts,
			Subject:   parts[4],
		})
	}

	return commits
}

// Diff returns the unified diff of a single commit, truncated to maxLines.
func (g *GitSource) Diff(ctx context.Context, repoPath, hash string, maxLines int) (string, error) {
	output, err := g.run(ctx, repoPath, "show", "--format=", "--no-merges", hash)
	if err != nil {
		return "", fmt.Errorf("show diff %s: %w", hash, err)
	}
	return truncateDiff(output, maxLines), nil
}

// truncateDiff caps a diff at maxLines, appending a truncation marker.
func truncateDiff(diff string, maxLines int) string {
	if diff == "" || maxLines <= 0 {
		return diff
	}
	lines := strings.Split(diff, "\n")
	if len(lines) <= maxLines {
		return diff
	}
	truncated := append(lines[:maxLines:maxLines],
		fmt.Sprintf("\n... (diff truncated after %d lines) ...", maxLines))
	return strings.Join(truncated, "\n")
}

// Authors returns the distinct non-merge commit authors since a date, sorted.
func (g *GitSource) Authors(ctx context.Context, repoPath string, since time.Time) ([]string, error) {
	output, err := g.run(ctx, repoPath, "log", "--format=%an",
		"--since", since.Format("2006-01-02"), "--no-merges")
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}

	set := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		name := strings.TrimSpace(line)
		if name != "" {
			set[name] = true
		}
	}

	authors := make([]string, 0, len(set))
	for name := range set {
		authors = append(authors, name)
	}
	sort.Strings(authors)
	return authors, nil
}
