package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpactPoints(t *testing.T) {
	assert.Equal(t, 1, ImpactPoints(1))
	assert.Equal(t, 2, ImpactPoints(2))
	assert.Equal(t, 5, ImpactPoints(3))
	assert.Equal(t, 13, ImpactPoints(4))
	assert.Equal(t, 21, ImpactPoints(5))

	// Out-of-range scores fall back to the minimum weight.
	assert.Equal(t, 1, ImpactPoints(0))
	assert.Equal(t, 1, ImpactPoints(6))
	assert.Equal(t, 1, ImpactPoints(-3))
}

func TestTotalImpactPoints(t *testing.T) {
	assert.Zero(t, TotalImpactPoints(nil))
	assert.Equal(t, 1+2+5+13+21, TotalImpactPoints([]int{1, 2, 3, 4, 5}))
	assert.Equal(t, 42, TotalImpactPoints([]int{5, 5}))
}

func TestScoreDistribution(t *testing.T) {
	assert.Nil(t, ScoreDistribution(nil))

	dist := ScoreDistribution([]int{1, 1, 3, 5, 5, 5})
	require.Len(t, dist, 5)

	assert.Equal(t, ScoreBucket{Count: 2, Percentage: 33.3, Points: 2}, dist[1])
	assert.Equal(t, ScoreBucket{Count: 0, Percentage: 0, Points: 0}, dist[2])
	assert.Equal(t, ScoreBucket{Count: 1, Percentage: 16.7, Points: 5}, dist[3])
	assert.Equal(t, ScoreBucket{Count: 3, Percentage: 50, Points: 63}, dist[5])
}
