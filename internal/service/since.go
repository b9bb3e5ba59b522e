package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// absoluteLayouts are tried in order before relative-date parsing.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseSince parses an absolute date or a relative expression like
// "1 week ago" / "3 months" against now.
func ParseSince(value string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// Absolute layouts are case-sensitive (RFC3339's T/Z); only the
	// relative grammar is case-folded.
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}

	rel := strings.TrimSuffix(strings.ToLower(trimmed), " ago")
	parts := strings.Fields(rel)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid relative date format: %s", value)
	}

	amount, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid number in relative date: %s", parts[0])
	}

	switch strings.TrimSuffix(parts[1], "s") {
	case "day":
		return now.AddDate(0, 0, -amount), nil
	case "week":
		return now.AddDate(0, 0, -amount*7), nil
	case "month":
		return now.AddDate(0, -amount, 0), nil
	case "year":
		return now.AddDate(-amount, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown time unit: %s", parts[1])
	}
}
