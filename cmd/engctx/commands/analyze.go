package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/samoht625/cursor-eng-ctx/internal/adapter/ai"
	"github.com/samoht625/cursor-eng-ctx/internal/adapter/store"
	"github.com/samoht625/cursor-eng-ctx/internal/adapter/vcs"
	"github.com/samoht625/cursor-eng-ctx/internal/domain"
	"github.com/samoht625/cursor-eng-ctx/internal/port"
	"github.com/samoht625/cursor-eng-ctx/internal/service"
	"github.com/samoht625/cursor-eng-ctx/pkg/config"
)

// AnalyzeCommand holds the flags for the analyze command.
type AnalyzeCommand struct {
	since       string
	repo        string
	model       string
	includeDiff bool
	clearCache  bool
}

// NewAnalyzeCommand creates and configures the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	cmd := &AnalyzeCommand{}

	cobraCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze merges since a date and score their impact",
		Long:  "Analyze reconstructs PR-equivalent changes from merge history, collapses revert chains, scores net changes through the LLM (cache-first), and persists results.",
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().StringVar(&cmd.since, "since", "", `Timestamp or relative time (e.g. "1 week ago")`)
	cobraCmd.Flags().StringVar(&cmd.repo, "repo", "", "Path to local git repository (or set REPO_PATH)")
	cobraCmd.Flags().StringVar(&cmd.model, "model", "", "Scoring model (default from OPENAI_MODEL)")
	cobraCmd.Flags().BoolVar(&cmd.includeDiff, "include-diff", false, "Include code diff in LLM analysis (may increase API costs)")
	cobraCmd.Flags().BoolVar(&cmd.clearCache, "clear-cache", false, "Clear the LLM response cache before running")

	return cobraCmd
}

// Run executes the analyze command.
func (c *AnalyzeCommand) Run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	repoPath := c.repo
	if repoPath == "" {
		repoPath = cfg.RepoPath
	}
	model := c.model
	if model == "" {
		model = cfg.OpenAIModel
	}

	// Whole-run preconditions: configuration errors abort with a diagnostic.
	if c.since == "" {
		return errors.New("--since is required for analysis")
	}
	if repoPath == "" {
		return errors.New("--repo is required for analysis (or set REPO_PATH)")
	}
	if cfg.OpenAIAPIKey == "" {
		return errors.New("API key not provided: set OPENAI_API_KEY or use a .env file")
	}
	if info, err := os.Stat(repoPath); err != nil || !info.IsDir() {
		return fmt.Errorf("repository path does not exist: %s", repoPath)
	}
	if info, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil || !info.IsDir() {
		return fmt.Errorf("not a git repository: %s", repoPath)
	}

	since, err := service.ParseSince(c.since, time.Now())
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}

	st, err := store.Open(cfg.DBDir)
	if err != nil {
		return err
	}
	defer st.Close()

	if c.clearCache {
		if err := st.ClearCache(ctx); err != nil {
			return err
		}
		fmt.Println("Cache cleared successfully.")
	}

	if stats, err := st.GetCacheStats(ctx); err == nil {
		fmt.Printf("Cache: %s cached responses available\n", humanize.Comma(int64(stats.TotalEntries)))
	}

	color.New(color.FgCyan).Printf("Analyzing merges since %s (model %s)\n", since.Format("2006-01-02 15:04:05"), model)

	scorer := ai.NewOpenAIClient(ai.OpenAIConfig{
		BaseURL: cfg.OpenAIBaseURL,
		Model:   model,
		APIKey:  cfg.OpenAIAPIKey,
	})

	analyzer := service.NewAnalyzer(vcs.NewGitSource(), scorer, st, st)
	changes, summary, err := analyzer.Run(ctx, repoPath, since, c.includeDiff)
	if errors.Is(err, port.ErrNoData) {
		color.New(color.FgYellow).Printf("Nothing to analyze: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	renderResults(changes, summary)
	fmt.Println("\nAnalysis complete. Run 'engctx serve' to view results.")
	return nil
}

// renderResults prints the scored changes and run totals.
func renderResults(changes []*domain.ReconstructedChange, summary *service.RunSummary) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Hash", "Score", "Author", "+", "-", "Subject"})

	totalAdds, totalDels := 0, 0
	for _, ch := range changes {
		totalAdds += ch.Additions
		totalDels += ch.Deletions
		tbl.AppendRow(table.Row{
			shortHash(ch.MergeHash), ch.ImpactScore, ch.PrimaryAuthor,
			ch.Additions, ch.Deletions, truncate(ch.Subject, 60),
		})
	}
	tbl.Render()

	fmt.Printf("Processed %d candidates: %d persisted, %d scored (%d cache hits), %d revert-chain links, %s lines added, %s deleted\n",
		summary.Candidates, summary.Persisted, summary.Scored, summary.CacheHits, summary.ZeroScored,
		humanize.Comma(int64(totalAdds)), humanize.Comma(int64(totalDels)))
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
