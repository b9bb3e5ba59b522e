package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samoht625/cursor-eng-ctx/internal/domain"
	"github.com/samoht625/cursor-eng-ctx/internal/port"
)

// maxDiffLines caps the diff embedded in a scoring prompt.
const maxDiffLines = 500

// scoringSystemPrompt is the system message for every scoring call.
const scoringSystemPrompt = "You are an expert at analyzing software engineering merges and scoring them based on the DX AI Measurement Framework."

// scoringCriteria is the rubric prepended to every scoring prompt. Part of
// the cache key: changing a character invalidates every cached response.
const scoringCriteria = `
You are analyzing a software engineering merge (equivalent to a Pull Request) to determine its impact score.

Evaluate the merge on these criteria and assign an impact score from 1-5:

Impact Score (1-5):
1 = Very Low Impact: Minor changes, small bug fixes, config tweaks
2 = Low Impact: Small features, isolated improvements, minor refactoring
3 = Medium Impact: Moderate features, some architectural changes, new components
4 = High Impact: Major features, significant architectural changes, new systems
5 = Very High Impact: Large-scale changes, major architectural overhauls, new dependencies/frameworks

Consider these factors:
- Scope: How much of the codebase is affected?
- Complexity: How technically complex is the implementation?
- Architectural blast radius: How many systems/components are impacted?
- New dependencies: Are new frameworks, libraries, or external dependencies introduced?

Provide your assessment in this exact JSON format:
{
  "impact_score": [1-5],
  "impact_assessment": "[150-250 character rationale explaining the score based on scope, complexity, blast radius, and dependencies]"
}
`

// ScoringService assigns impact scores through the LLM, cache-first.
// One failed call degrades that one change; the batch always continues.
type ScoringService struct {
	scorer port.Scorer
	cache  port.ResponseCache
	source port.CommitSource
}

// NewScoringService creates a new scoring service.
func NewScoringService(scorer port.Scorer, cache port.ResponseCache, source port.CommitSource) *ScoringService {
	return &ScoringService{scorer: scorer, cache: cache, source: source}
}

// ScoreStats counts what happened during a scoring pass.
type ScoreStats struct {
	Scored    int // externally assessed (cache or live call)
	CacheHits int
	Skipped   int // pre-scored revert-chain links
}

// ScoreAll scores every change in place. Changes already zero-scored by the
// revert-chain resolver are skipped entirely.
func (s *ScoringService) ScoreAll(ctx context.Context, changes []*domain.ReconstructedChange, includeDiff bool) ScoreStats {
	var stats ScoreStats

	for _, ch := range changes {
		if ch.Scored && ch.ImpactScore == 0 {
			slog.Info("skipping revert-chain link", "hash", ch.MergeHash, "subject", ch.Subject)
			stats.Skipped++
			continue
		}

		hit := s.scoreOne(ctx, ch, includeDiff)
		stats.Scored++
		if hit {
			stats.CacheHits++
		}
	}

	return stats
}

// scoreOne assigns a score to a single change, reporting whether the
// response came from cache.
func (s *ScoringService) scoreOne(ctx context.Context, ch *domain.ReconstructedChange, includeDiff bool) bool {
	prompt := s.buildPrompt(ctx, ch, includeDiff)
	model := s.scorer.ModelName()

	cacheHit := false
	content, ok, err := s.cache.Lookup(ctx, prompt, model)
	if err != nil {
		slog.Warn("cache lookup failed", "hash", ch.MergeHash, "error", err)
		ok = false
	}

	var callErr error
	if ok {
		cacheHit = true
		slog.Info("using cached response", "hash", ch.MergeHash, "subject", ch.Subject)
	} else {
		slog.Info("scoring merge", "hash", ch.MergeHash, "subject", ch.Subject, "model", model)
		content, callErr = s.scorer.Chat(ctx, scoringSystemPrompt, prompt)
		if callErr == nil && content != "" {
			if err := s.cache.Store(ctx, prompt, model, content); err != nil {
				slog.Warn("cache store failed", "hash", ch.MergeHash, "error", err)
			}
		}
	}

	score, assessment, err := parseScoreResponse(content)
	if err != nil {
		if callErr != nil {
			err = callErr
		}
		slog.Warn("scoring degraded", "hash", ch.MergeHash, "error", err)
		score = 1
		assessment = fmt.Sprintf("Error during analysis: %v", err)
	}

	ch.Scored = true
	ch.ImpactScore = score
	ch.ImpactAssessment = assessment
	return cacheHit
}

// buildPrompt assembles the full scoring prompt: the rubric, the change's
// metadata block, its commit list, the full message when it adds anything,
// and optionally a truncated diff.
func (s *ScoringService) buildPrompt(ctx context.Context, ch *domain.ReconstructedChange, includeDiff bool) string {
	var b strings.Builder

	b.WriteString(scoringCriteria)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, `
Merge Analysis:
- Subject: %s
- Author: %s
- Commits: %d
- Lines Added: %d
- Lines Deleted: %d
- Files Changed: %d
- Development Time: %g hours
- Review Time: %g hours
- Merge Date: %s
`,
		ch.Subject, ch.PrimaryAuthor, ch.CommitsCount,
		ch.Additions, ch.Deletions, ch.FilesChanged,
		ch.DevelopmentHours, ch.ReviewHours,
		ch.MergeDate.Format("2006-01-02 15:04:05-07:00"),
	)

	if len(ch.Commits) > 0 {
		b.WriteString("\nCommits:\n")
		for i, c := range ch.Commits {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "- %s (%s)", c.Subject, c.Timestamp.Format("2006-01-02 15:04"))
		}
	}

	if ch.FullMessage != "" && ch.FullMessage != ch.Subject {
		fmt.Fprintf(&b, "\n\nFull Commit Message:\n%s", ch.FullMessage)
	}

	if includeDiff && ch.RepoPath != "" {
		diff, err := s.source.Diff(ctx, ch.RepoPath, ch.MergeHash, maxDiffLines)
		if err != nil {
			slog.Debug("diff unavailable for prompt", "hash", ch.MergeHash, "error", err)
		} else if strings.TrimSpace(diff) != "" {
			fmt.Fprintf(&b, "\n\nCode Changes (Diff):\n```diff\n%s\n```", diff)
		}
	}

	b.WriteString("\n\nProvide the analysis in the exact JSON format specified above.")
	return b.String()
}

// parseScoreResponse strips any Markdown fencing and decodes the two-field
// JSON assessment.
func parseScoreResponse(content string) (int, string, error) {
	if content == "" {
		return 0, "", fmt.Errorf("empty response")
	}

	var parsed struct {
		ImpactScore      int    `json:"impact_score"`
		ImpactAssessment string `json:"impact_assessment"`
	}
	if err := json.Unmarshal([]byte(stripMarkdownFences(content)), &parsed); err != nil {
		return 0, "", fmt.Errorf("parse response: %w", err)
	}

	return parsed.ImpactScore, parsed.ImpactAssessment, nil
}

// stripMarkdownFences removes a ```json ... ``` wrapper (or trailing ```)
// so the payload parses as plain JSON.
func stripMarkdownFences(content string) string {
	cleaned := strings.TrimSpace(content)

	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
		if end := strings.Index(cleaned, "```"); end != -1 {
			cleaned = cleaned[:end]
		}
	} else if strings.HasSuffix(cleaned, "```") {
		cleaned = cleaned[:len(cleaned)-3]
	}

	return strings.TrimSpace(cleaned)
}
