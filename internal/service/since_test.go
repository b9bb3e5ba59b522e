package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"date only", "2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"date and time", "2024-01-02 08:30:00", time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC)},
		{"rfc3339", "2024-01-02T08:30:00Z", time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC)},
		{"rfc3339 with offset", "2024-01-02T08:30:00+02:00", time.Date(2024, 1, 2, 6, 30, 0, 0, time.UTC)},
		{"days ago", "10 days ago", now.AddDate(0, 0, -10)},
		{"one week", "1 week ago", now.AddDate(0, 0, -7)},
		{"weeks without ago", "2 weeks", now.AddDate(0, 0, -14)},
		{"months", "3 months ago", now.AddDate(0, -3, 0)},
		{"years", "1 year ago", now.AddDate(-1, 0, 0)},
		{"mixed case", "1 Week Ago", now.AddDate(0, 0, -7)},
		{"padded", "  1 week ago  ", now.AddDate(0, 0, -7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSince(tt.value, now)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseSinceRejectsGarbage(t *testing.T) {
	now := time.Now()

	for _, value := range []string{"", "yesterday", "week ago", "x weeks ago", "2 fortnights ago"} {
		_, err := ParseSince(value, now)
		assert.Error(t, err, "value %q", value)
	}
}
