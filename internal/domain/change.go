package domain

import "time"

// ReconstructedChange is the "PR" unit: a merge commit together with the
// constituent commits it brought in, plus derived timing and size metrics.
// It is built once per run, mutated in place by the revert-chain resolver
// and the scorer, then persisted keyed by MergeHash.
type ReconstructedChange struct {
	MergeHash   string    `json:"merge_hash"`
	Subject     string    `json:"merge_subject"`
	FullMessage string    `json:"merge_message,omitempty"`
	MergeDate   time.Time `json:"merge_date"`

	// PrimaryAuthor is the author of the earliest relevant constituent
	// commit, or the merge commit's own author when none qualify.
	PrimaryAuthor string `json:"author"`

	// Commits holds the relevant constituent commits, chronological.
	Commits      []RawCommit `json:"pr_commits,omitempty"`
	CommitsCount int         `json:"commits_count"`

	FirstCommitDate time.Time `json:"first_commit_date"`
	LastCommitDate  time.Time `json:"last_commit_date"`

	// DevelopmentHours and ReviewHours may be negative when commit clocks
	// are out of order. That is telemetry, not an error; never clamped.
	DevelopmentHours float64 `json:"development_hours"`
	ReviewHours      float64 `json:"review_hours"`

	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	FilesChanged int `json:"files_changed"`

	RepoPath string `json:"repo_path,omitempty"`

	// Scored flips when either the revert-chain resolver assigns a
	// zero score or the scorer assigns 1-5.
	Scored           bool   `json:"-"`
	ImpactScore      int    `json:"impact_score"`
	ImpactAssessment string `json:"impact_assessment"`
}
