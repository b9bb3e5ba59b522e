package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samoht625/cursor-eng-ctx/internal/domain"
)

// fakeScorer replays canned responses and counts live calls.
type fakeScorer struct {
	response string
	err      error
	calls    int
}

func (f *fakeScorer) ModelName() string { return "test-model" }

func (f *fakeScorer) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	return f.response, f.err
}

// memCache is a map-backed port.ResponseCache.
type memCache struct {
	entries map[string]string
}

func newMemCache() *memCache { return &memCache{entries: map[string]string{}} }

func (m *memCache) key(prompt, model string) string { return model + ":" + prompt }

func (m *memCache) Lookup(ctx context.Context, prompt, model string) (string, bool, error) {
	v, ok := m.entries[m.key(prompt, model)]
	return v, ok, nil
}

func (m *memCache) Store(ctx context.Context, prompt, model, response string) error {
	m.entries[m.key(prompt, model)] = response
	return nil
}

func scoreChange(subject string) *domain.ReconstructedChange {
	return &domain.ReconstructedChange{
		MergeHash:     "abc123",
		Subject:       subject,
		FullMessage:   subject,
		MergeDate:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		PrimaryAuthor: "alice",
		CommitsCount:  1,
	}
}

func TestParseScoreResponse(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		score      int
		assessment string
		wantErr    bool
	}{
		{
			name:       "plain json",
			content:    `{"impact_score": 3, "impact_assessment": "Moderate feature."}`,
			score:      3,
			assessment: "Moderate feature.",
		},
		{
			name:       "json fence",
			content:    "```json\n{\"impact_score\": 4, \"impact_assessment\": \"Big one.\"}\n```",
			score:      4,
			assessment: "Big one.",
		},
		{
			name:       "bare fence",
			content:    "{\"impact_score\": 2, \"impact_assessment\": \"Small.\"}\n```",
			score:      2,
			assessment: "Small.",
		},
		{
			name:    "empty",
			content: "",
			wantErr: true,
		},
		{
			name:    "prose",
			content: "I would rate this a 3 out of 5.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, assessment, err := parseScoreResponse(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.assessment, assessment)
		})
	}
}

func TestStripMarkdownFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripMarkdownFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripMarkdownFences("{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripMarkdownFences(`{"a":1}`))
}

func TestScoreAll_LiveCallThenCacheHit(t *testing.T) {
	scorer := &fakeScorer{response: `{"impact_score": 4, "impact_assessment": "New subsystem."}`}
	cache := newMemCache()
	svc := NewScoringService(scorer, cache, &fakeSource{})

	ch := scoreChange("Add ingestion pipeline (#42)")
	stats := svc.ScoreAll(context.Background(), []*domain.ReconstructedChange{ch}, false)

	assert.Equal(t, ScoreStats{Scored: 1}, stats)
	assert.Equal(t, 1, scorer.calls)
	assert.Equal(t, 4, ch.ImpactScore)
	assert.Equal(t, "New subsystem.", ch.ImpactAssessment)
	assert.True(t, ch.Scored)

	// Same change again: served from cache, no second call.
	ch2 := scoreChange("Add ingestion pipeline (#42)")
	stats = svc.ScoreAll(context.Background(), []*domain.ReconstructedChange{ch2}, false)

	assert.Equal(t, ScoreStats{Scored: 1, CacheHits: 1}, stats)
	assert.Equal(t, 1, scorer.calls)
	assert.Equal(t, 4, ch2.ImpactScore)
}

func TestScoreAll_CallFailureDegradesToScoreOne(t *testing.T) {
	scorer := &fakeScorer{err: fmt.Errorf("model offline")}
	svc := NewScoringService(scorer, newMemCache(), &fakeSource{})

	ch := scoreChange("Fix flaky retry (#9)")
	svc.ScoreAll(context.Background(), []*domain.ReconstructedChange{ch}, false)

	assert.Equal(t, 1, ch.ImpactScore)
	assert.Equal(t, "Error during analysis: model offline", ch.ImpactAssessment)
	assert.True(t, ch.Scored)
}

func TestScoreAll_MalformedResponseDegradesToScoreOne(t *testing.T) {
	scorer := &fakeScorer{response: "not json at all"}
	svc := NewScoringService(scorer, newMemCache(), &fakeSource{})

	ch := scoreChange("Tweak config (#3)")
	svc.ScoreAll(context.Background(), []*domain.ReconstructedChange{ch}, false)

	assert.Equal(t, 1, ch.ImpactScore)
	assert.Contains(t, ch.ImpactAssessment, "Error during analysis:")
}

func TestScoreAll_SkipsZeroScoredChainLinks(t *testing.T) {
	scorer := &fakeScorer{response: `{"impact_score": 5, "impact_assessment": "x"}`}
	svc := NewScoringService(scorer, newMemCache(), &fakeSource{})

	link := scoreChange("Revert \"Add ingestion pipeline\" (#43)")
	link.Scored = true
	link.ImpactScore = 0
	link.ImpactAssessment = revertChainAssessment

	stats := svc.ScoreAll(context.Background(), []*domain.ReconstructedChange{link}, false)

	assert.Equal(t, ScoreStats{Skipped: 1}, stats)
	assert.Zero(t, scorer.calls)
	assert.Zero(t, link.ImpactScore)
	assert.Equal(t, revertChainAssessment, link.ImpactAssessment)
}

func TestBuildPrompt_IncludesDiffOnRequest(t *testing.T) {
	src := &fakeSource{diffs: map[string]string{"abc123": "+added line\n-removed line"}}
	svc := NewScoringService(&fakeScorer{}, newMemCache(), src)

	ch := scoreChange("Add thing (#1)")
	ch.RepoPath = "/repo"

	without := svc.buildPrompt(context.Background(), ch, false)
	assert.NotContains(t, without, "```diff")
	assert.Zero(t, src.diffCalls)

	with := svc.buildPrompt(context.Background(), ch, true)
	assert.Contains(t, with, "```diff\n+added line\n-removed line\n```")
	assert.Contains(t, with, "- Subject: Add thing (#1)")
	assert.Contains(t, with, "Provide the analysis in the exact JSON format specified above.")
}
