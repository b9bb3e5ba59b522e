package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samoht625/cursor-eng-ctx/internal/domain"
	"github.com/samoht625/cursor-eng-ctx/internal/port"

	_ "modernc.org/sqlite"
)

// Default database file names inside the db directory.
const (
	analysisDBFile = "pr_analysis.db"
	cacheDBFile    = "llm_cache.db"
)

// SQLiteStore handles all relational database operations: the analysis
// result sink and the LLM response cache, each in its own database file.
type SQLiteStore struct {
	analysis *sql.DB
	cache    *sql.DB
}

// Open creates the db directory if needed, opens both databases, and
// bootstraps their schemas.
func Open(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	analysis, err := openDB(filepath.Join(dir, analysisDBFile))
	if err != nil {
		return nil, fmt.Errorf("open analysis database: %w", err)
	}

	cache, err := openDB(filepath.Join(dir, cacheDBFile))
	if err != nil {
		analysis.Close()
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	s := &SQLiteStore{analysis: analysis, cache: cache}
	if err := s.initSchemas(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes both database connections.
func (s *SQLiteStore) Close() error {
	cerr := s.cache.Close()
	if err := s.analysis.Close(); err != nil {
		return err
	}
	return cerr
}

func (s *SQLiteStore) initSchemas() error {
	_, err := s.analysis.Exec(`
		CREATE TABLE IF NOT EXISTS pr_analysis (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			merge_hash TEXT UNIQUE NOT NULL,
			merge_subject TEXT NOT NULL,
			merge_message TEXT,
			author TEXT NOT NULL,
			merge_date TIMESTAMP NOT NULL,
			commits_count INTEGER NOT NULL,
			additions INTEGER NOT NULL,
			deletions INTEGER NOT NULL,
			files_changed INTEGER NOT NULL,
			development_hours REAL NOT NULL,
			review_hours REAL NOT NULL,
			impact_score INTEGER NOT NULL,
			impact_assessment TEXT NOT NULL,
			repo_path TEXT,
			analyzed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_merge_hash ON pr_analysis(merge_hash);
		CREATE INDEX IF NOT EXISTS idx_author ON pr_analysis(author);
		CREATE INDEX IF NOT EXISTS idx_merge_date ON pr_analysis(merge_date);
	`)
	if err != nil {
		return fmt.Errorf("init analysis schema: %w", err)
	}

	_, err = s.cache.Exec(`
		CREATE TABLE IF NOT EXISTS llm_cache (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			prompt_hash TEXT UNIQUE NOT NULL,
			prompt_content TEXT NOT NULL,
			response_content TEXT NOT NULL,
			model TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_prompt_hash ON llm_cache(prompt_hash);
	`)
	if err != nil {
		return fmt.Errorf("init cache schema: %w", err)
	}
	return nil
}

// --- Analysis results ---

// AnalysisRow represents a persisted change record.
type AnalysisRow struct {
	MergeHash        string  `json:"merge_hash"`
	Subject          string  `json:"merge_subject"`
	Message          string  `json:"merge_message,omitempty"`
	Author           string  `json:"author"`
	MergeDate        string  `json:"merge_date"`
	CommitsCount     int     `json:"commits_count"`
	Additions        int     `json:"additions"`
	Deletions        int     `json:"deletions"`
	FilesChanged     int     `json:"files_changed"`
	DevelopmentHours float64 `json:"development_hours"`
	ReviewHours      float64 `json:"review_hours"`
	ImpactScore      int     `json:"impact_score"`
	ImpactAssessment string  `json:"impact_assessment"`
	RepoPath         string  `json:"repo_path,omitempty"`
	AnalyzedAt       string  `json:"analyzed_at"`
}

// UpsertAnalysis inserts or replaces a change record by merge hash.
func (s *SQLiteStore) UpsertAnalysis(ctx context.Context, ch *domain.ReconstructedChange) error {
	query := `INSERT OR REPLACE INTO pr_analysis (
			merge_hash, merge_subject, merge_message, author, merge_date, commits_count,
			additions, deletions, files_changed, development_hours, review_hours,
			impact_score, impact_assessment, repo_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.analysis.ExecContext(ctx, query,
		ch.MergeHash, ch.Subject, ch.FullMessage, ch.PrimaryAuthor,
		ch.MergeDate.Format(time.RFC3339), ch.CommitsCount,
		ch.Additions, ch.Deletions, ch.FilesChanged,
		ch.DevelopmentHours, ch.ReviewHours,
		ch.ImpactScore, ch.ImpactAssessment, ch.RepoPath,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis %s: %w", ch.MergeHash, err)
	}
	return nil
}

// AnalysisFilter narrows and orders ListAnalyses results.
type AnalysisFilter struct {
	Author     string
	TimeFilter string // "last_week", "last_month", or empty
	SortBy     string
	SortOrder  string
}

// sortColumns whitelists ORDER BY targets.
var sortColumns = map[string]bool{
	"impact_score": true,
	"merge_date":   true,
	"additions":    true,
	"deletions":    true,
	"author":       true,
}

// timeFilterCondition returns a SQL condition and argument for a relative
// time window, or empty strings when no window applies.
func timeFilterCondition(timeFilter string, now time.Time) (string, string) {
	var start time.Time
	switch timeFilter {
	case "last_week":
		start = now.AddDate(0, 0, -7)
	case "last_month":
		start = now.AddDate(0, 0, -30)
	default:
		return "", ""
	}
	return " AND datetime(merge_date) >= datetime(?)", start.Format(time.RFC3339)
}

// ListAnalyses returns persisted change records with impact_score > 0,
// filtered and sorted. Zero-scored revert-chain links are never listed.
func (s *SQLiteStore) ListAnalyses(ctx context.Context, f AnalysisFilter) ([]AnalysisRow, error) {
	query := `SELECT merge_hash, merge_subject, COALESCE(merge_message, ''), author, merge_date,
			commits_count, additions, deletions, files_changed, development_hours, review_hours,
			impact_score, impact_assessment, COALESCE(repo_path, ''), analyzed_at
		FROM pr_analysis WHERE impact_score > 0`
	var args []interface{}

	if f.Author != "" {
		query += " AND author = ?"
		args = append(args, f.Author)
	}

	if cond, arg := timeFilterCondition(f.TimeFilter, time.Now()); cond != "" {
		query += cond
		args = append(args, arg)
	}

	sortBy := f.SortBy
	if !sortColumns[sortBy] {
		sortBy = "impact_score"
	}
	query += " ORDER BY " + sortBy
	order := strings.ToLower(f.SortOrder)
	if order == "" || order == "desc" {
		query += " DESC"
	} else {
		query += " ASC"
	}

	rows, err := s.analysis.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var results []AnalysisRow
	for rows.Next() {
		var r AnalysisRow
		if err := rows.Scan(
			&r.MergeHash, &r.Subject, &r.Message, &r.Author, &r.MergeDate,
			&r.CommitsCount, &r.Additions, &r.Deletions, &r.FilesChanged,
			&r.DevelopmentHours, &r.ReviewHours,
			&r.ImpactScore, &r.ImpactAssessment, &r.RepoPath, &r.AnalyzedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetAnalysisByHash returns one record by merge hash, any score.
func (s *SQLiteStore) GetAnalysisByHash(ctx context.Context, mergeHash string) (*AnalysisRow, error) {
	query := `SELECT merge_hash, merge_subject, COALESCE(merge_message, ''), author, merge_date,
			commits_count, additions, deletions, files_changed, development_hours, review_hours,
			impact_score, impact_assessment, COALESCE(repo_path, ''), analyzed_at
		FROM pr_analysis WHERE merge_hash = ?`

	var r AnalysisRow
	err := s.analysis.QueryRowContext(ctx, query, mergeHash).Scan(
		&r.MergeHash, &r.Subject, &r.Message, &r.Author, &r.MergeDate,
		&r.CommitsCount, &r.Additions, &r.Deletions, &r.FilesChanged,
		&r.DevelopmentHours, &r.ReviewHours,
		&r.ImpactScore, &r.ImpactAssessment, &r.RepoPath, &r.AnalyzedAt,
	)
	if err == sql.ErrNoRows {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", mergeHash, err)
	}
	return &r, nil
}

// Authors returns distinct authors over externally scored records.
func (s *SQLiteStore) Authors(ctx context.Context) ([]string, error) {
	rows, err := s.analysis.QueryContext(ctx,
		`SELECT DISTINCT author FROM pr_analysis WHERE impact_score > 0 ORDER BY author`)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	var authors []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// --- Summary statistics ---

// OverallStats aggregates all externally scored records in a window.
type OverallStats struct {
	TotalAnalyses  int                        `json:"total_analyses"`
	ImpactPoints   int                        `json:"impact_points"`
	Distribution   map[int]domain.ScoreBucket `json:"distribution,omitempty"`
	TotalAdditions int                        `json:"total_additions"`
	TotalDeletions int                        `json:"total_deletions"`
}

// AuthorStats aggregates one author's externally scored records.
type AuthorStats struct {
	Author            string                     `json:"author"`
	MergeCount        int                        `json:"merge_count"`
	ImpactPoints      int                        `json:"impact_points"`
	Distribution      map[int]domain.ScoreBucket `json:"distribution,omitempty"`
	TotalAdditions    int                        `json:"total_additions"`
	TotalDeletions    int                        `json:"total_deletions"`
	TotalFilesChanged int                        `json:"total_files_changed"`
}

// Summary is the reporting rollup: overall plus per-author aggregates
// sorted by impact points descending.
type Summary struct {
	Overall  OverallStats  `json:"overall"`
	ByAuthor []AuthorStats `json:"by_author"`
}

// SummaryStats computes the reporting rollup for an optional time window.
// Revert-chain links (score 0) are excluded throughout.
func (s *SQLiteStore) SummaryStats(ctx context.Context, timeFilter string) (*Summary, error) {
	query := `SELECT author, impact_score, additions, deletions, files_changed
		FROM pr_analysis WHERE impact_score > 0`
	var args []interface{}

	if cond, arg := timeFilterCondition(timeFilter, time.Now()); cond != "" {
		query += cond
		args = append(args, arg)
	}

	rows, err := s.analysis.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary stats: %w", err)
	}
	defer rows.Close()

	var allScores []int
	summary := &Summary{}
	perAuthor := make(map[string]*AuthorStats)
	authorScores := make(map[string][]int)

	for rows.Next() {
		var author string
		var score, additions, deletions, files int
		if err := rows.Scan(&author, &score, &additions, &deletions, &files); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}

		allScores = append(allScores, score)
		summary.Overall.TotalAnalyses++
		summary.Overall.TotalAdditions += additions
		summary.Overall.TotalDeletions += deletions

		as, ok := perAuthor[author]
		if !ok {
			as = &AuthorStats{Author: author}
			perAuthor[author] = as
		}
		as.MergeCount++
		as.TotalAdditions += additions
		as.TotalDeletions += deletions
		as.TotalFilesChanged += files
		authorScores[author] = append(authorScores[author], score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summary stats: %w", err)
	}

	summary.Overall.ImpactPoints = domain.TotalImpactPoints(allScores)
	summary.Overall.Distribution = domain.ScoreDistribution(allScores)

	for author, as := range perAuthor {
		scores := authorScores[author]
		as.ImpactPoints = domain.TotalImpactPoints(scores)
		as.Distribution = domain.ScoreDistribution(scores)
		summary.ByAuthor = append(summary.ByAuthor, *as)
	}
	sort.Slice(summary.ByAuthor, func(i, j int) bool {
		return summary.ByAuthor[i].ImpactPoints > summary.ByAuthor[j].ImpactPoints
	})

	return summary, nil
}

// --- LLM response cache ---

// PromptKey derives the content-addressed cache key for (model, prompt).
// SHA-256 over "model:prompt" — the key must stay byte-identical across
// implementations so existing cache entries keep hitting.
func PromptKey(prompt, model string) string {
	sum := sha256.Sum256([]byte(model + ":" + prompt))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached LLM response for (prompt, model), if any.
func (s *SQLiteStore) Lookup(ctx context.Context, prompt, model string) (string, bool, error) {
	var response string
	err := s.cache.QueryRowContext(ctx,
		`SELECT response_content FROM llm_cache WHERE prompt_hash = ?`,
		PromptKey(prompt, model),
	).Scan(&response)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}
	return response, true, nil
}

// Store caches an LLM response, replacing any existing entry for the key.
func (s *SQLiteStore) Store(ctx context.Context, prompt, model, response string) error {
	_, err := s.cache.ExecContext(ctx,
		`INSERT OR REPLACE INTO llm_cache (prompt_hash, prompt_content, response_content, model)
		 VALUES (?, ?, ?, ?)`,
		PromptKey(prompt, model), prompt, response, model,
	)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// ClearCache deletes all cached LLM responses.
func (s *SQLiteStore) ClearCache(ctx context.Context) error {
	if _, err := s.cache.ExecContext(ctx, `DELETE FROM llm_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// CacheStats summarizes the cache contents.
type CacheStats struct {
	TotalEntries int            `json:"total_entries"`
	ByModel      map[string]int `json:"by_model"`
}

// GetCacheStats returns entry counts overall and per model.
func (s *SQLiteStore) GetCacheStats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{ByModel: make(map[string]int)}

	err := s.cache.QueryRowContext(ctx, `SELECT COUNT(*) FROM llm_cache`).Scan(&stats.TotalEntries)
	if err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}

	rows, err := s.cache.QueryContext(ctx, `SELECT model, COUNT(*) FROM llm_cache GROUP BY model`)
	if err != nil {
		return nil, fmt.Errorf("cache stats by model: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var model string
		var count int
		if err := rows.Scan(&model, &count); err != nil {
			return nil, fmt.Errorf("scan cache stat: %w", err)
		}
		stats.ByModel[model] = count
	}
	return stats, rows.Err()
}
