package domain

import "time"

// RawCommit is a single commit as read from the version-control source.
// Immutable once parsed.
type RawCommit struct {
	Hash         string    `json:"hash"`
	Author       string    `json:"author"`
	Email        string    `json:"email"`
	Timestamp    time.Time `json:"timestamp"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body,omitempty"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	FilesChanged int       `json:"files_changed"`
}

// MergeCandidate is a commit that may represent one logical change-unit.
// Traditional candidates are true multi-parent merge commits; squashed
// candidates are single commits whose subject carries an issue/PR reference.
type MergeCandidate struct {
	Hash               string    `json:"hash"`
	Author             string    `json:"author"`
	Date               time.Time `json:"date"`
	Subject            string    `json:"subject"`
	IsTraditionalMerge bool      `json:"is_traditional_merge"`
}
