package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/samoht625/cursor-eng-ctx/internal/adapter/store"
	"github.com/samoht625/cursor-eng-ctx/pkg/config"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the LLM response cache",
	}

	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache statistics",
			RunE:  runCacheStats,
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete all cached LLM responses",
			RunE:  runCacheClear,
		},
	)

	return cacheCmd
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	st, err := store.Open(config.Load().DBDir)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.GetCacheStats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Total entries: %d\n", stats.TotalEntries)
	if len(stats.ByModel) == 0 {
		return nil
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Model", "Entries"})
	for model, count := range stats.ByModel {
		tbl.AppendRow(table.Row{model, count})
	}
	tbl.Render()
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	st, err := store.Open(config.Load().DBDir)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ClearCache(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Cache cleared successfully.")
	return nil
}
