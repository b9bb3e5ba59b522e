package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samoht625/cursor-eng-ctx/internal/domain"
)

func TestExtractOriginalSubject(t *testing.T) {
	tests := []struct {
		name       string
		subject    string
		want       string
		wantRevert bool
	}{
		{"plain subject", "Add feature X", "Add feature X", false},
		{"colon prefix", "Revert: Add feature X", "Add feature X", true},
		{"lowercase colon prefix", "revert: Add feature X", "Add feature X", true},
		{"nested colon prefixes", "Revert: Revert: Add X", "Add X", true},
		{"double-quoted", `Revert "Add X (#42)"`, "Add X (#42)", true},
		{"single-quoted", `Revert 'Add X'`, "Add X", true},
		{"unquoted", "Revert Add X", "Add X", true},
		{"nested quoted reverts", `Revert "Revert "Add X""`, "Add X", true},
		{"title with nested quotes", `Revert "Fix the "fast" path"`, `Fix the "fast" path`, true},
		{"unterminated quote is not a revert form", `Revert "Add X`, `Revert "Add X`, false},
		{"revert mentioned mid-subject", "Do not revert this", "Do not revert this", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isRevert := ExtractOriginalSubject(tt.subject)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRevert, isRevert)
		})
	}
}

func TestNormalizeSubject(t *testing.T) {
	key, isRevert := NormalizeSubject(`Revert "Add X (#42)"`)
	assert.Equal(t, "Add X", key)
	assert.True(t, isRevert)

	key, isRevert = NormalizeSubject("Add X (#99)")
	assert.Equal(t, "Add X", key)
	assert.False(t, isRevert)

	// Suffix stripping applies only at end of string.
	key, _ = NormalizeSubject("Add X (#42) and more")
	assert.Equal(t, "Add X (#42) and more", key)
}

func chainChange(hash, subject string, mergedAt time.Time) *domain.ReconstructedChange {
	return &domain.ReconstructedChange{
		MergeHash:     hash,
		Subject:       subject,
		MergeDate:     mergedAt,
		PrimaryAuthor: "alice",
	}
}

func TestResolveRevertChains_LandRevertReland(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	original := chainChange("c1", "Add X (#10)", base)
	revert := chainChange("c2", `Revert "Add X (#10)" (#11)`, base.Add(time.Hour))
	reland := chainChange("c3", "Add X (#12)", base.Add(2*time.Hour))

	resolved := ResolveRevertChains([]*domain.ReconstructedChange{original, revert, reland})
	require.Len(t, resolved, 3)

	assert.True(t, original.Scored)
	assert.Equal(t, 0, original.ImpactScore)
	assert.Equal(t, revertChainAssessment, original.ImpactAssessment)

	assert.True(t, revert.Scored)
	assert.Equal(t, 0, revert.ImpactScore)

	// Only the re-land proceeds to external scoring.
	assert.False(t, reland.Scored)
}

func TestResolveRevertChains_FullyCancelled(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	original := chainChange("c1", "Add X", base)
	revert := chainChange("c2", `Revert "Add X"`, base.Add(time.Hour))

	ResolveRevertChains([]*domain.ReconstructedChange{original, revert})

	// Net state inactive: nobody gets external scoring.
	assert.True(t, original.Scored)
	assert.Equal(t, 0, original.ImpactScore)
	assert.True(t, revert.Scored)
	assert.Equal(t, 0, revert.ImpactScore)
}

func TestResolveRevertChains_TripleRevertParity(t *testing.T) {
	// land, revert, revert-of-revert, revert-of-revert-of-revert:
	// odd revert count after the land leaves the chain inactive, whatever
	// the literal wording suggests.
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	changes := []*domain.ReconstructedChange{
		chainChange("c1", "Add X", base),
		chainChange("c2", `Revert "Add X"`, base.Add(1*time.Hour)),
		chainChange("c3", `Revert "Revert "Add X""`, base.Add(2*time.Hour)),
		chainChange("c4", `Revert "Revert "Revert "Add X"""`, base.Add(3*time.Hour)),
	}

	ResolveRevertChains(changes)

	for _, ch := range changes {
		assert.True(t, ch.Scored, "hash %s", ch.MergeHash)
		assert.Equal(t, 0, ch.ImpactScore, "hash %s", ch.MergeHash)
	}
}

func TestResolveRevertChains_SingletonPassesThrough(t *testing.T) {
	ch := chainChange("c1", "Lone change (#5)", time.Now())
	resolved := ResolveRevertChains([]*domain.ReconstructedChange{ch})
	require.Len(t, resolved, 1)
	assert.False(t, ch.Scored)
	assert.Equal(t, 0, ch.ImpactScore)
}

func TestResolveRevertChains_AtMostOneScorable(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Two lands interleaved with a revert, all one logical change.
	changes := []*domain.ReconstructedChange{
		chainChange("c1", "Add X (#1)", base),
		chainChange("c2", `Revert "Add X (#1)" (#2)`, base.Add(time.Hour)),
		chainChange("c3", "Add X (#3)", base.Add(2*time.Hour)),
		chainChange("c4", "Unrelated (#4)", base.Add(3*time.Hour)),
	}

	resolved := ResolveRevertChains(changes)
	require.Len(t, resolved, 4)

	scorable := 0
	for _, ch := range resolved {
		if !ch.Scored {
			scorable++
		}
	}
	// One per group: the re-land and the unrelated singleton.
	assert.Equal(t, 2, scorable)
}

func TestResolveRevertChains_SortsByMergeDate(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Re-land presented before the original; the walk must follow merge
	// dates, not input order.
	reland := chainChange("c3", "Add X", base.Add(2*time.Hour))
	original := chainChange("c1", "Add X", base)
	revert := chainChange("c2", `Revert "Add X"`, base.Add(time.Hour))

	ResolveRevertChains([]*domain.ReconstructedChange{reland, original, revert})

	assert.False(t, reland.Scored)
	assert.True(t, original.Scored)
	assert.True(t, revert.Scored)
}
