package domain

import "math"

// impactWeights maps a 1-5 impact score to weighted impact points.
// Fibonacci weighting: high-impact merges dominate the totals.
var impactWeights = map[int]int{
	1: 1,
	2: 2,
	3: 5,
	4: 13,
	5: 21,
}

// ImpactPoints converts an impact score to weighted points.
// Unknown scores count as 1.
func ImpactPoints(score int) int {
	if w, ok := impactWeights[score]; ok {
		return w
	}
	return 1
}

// TotalImpactPoints sums weighted points over a list of scores.
func TotalImpactPoints(scores []int) int {
	total := 0
	for _, s := range scores {
		total += ImpactPoints(s)
	}
	return total
}

// ScoreBucket is one row of a score distribution.
type ScoreBucket struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Points     int     `json:"points"`
}

// ScoreDistribution buckets scores 1-5 with counts, percentages, and points.
// Returns nil for an empty input.
func ScoreDistribution(scores []int) map[int]ScoreBucket {
	if len(scores) == 0 {
		return nil
	}

	total := len(scores)
	dist := make(map[int]ScoreBucket, 5)

	for score := 1; score <= 5; score++ {
		count := 0
		for _, s := range scores {
			if s == score {
				count++
			}
		}
		pct := float64(count) / float64(total) * 100
		dist[score] = ScoreBucket{
			Count:      count,
			Percentage: math.Round(pct*10) / 10,
			Points:     count * ImpactPoints(score),
		}
	}

	return dist
}
