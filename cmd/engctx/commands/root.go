package commands

import "github.com/spf13/cobra"

// NewRootCommand creates the engctx root command with all subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "engctx",
		Short:        "Analyze git merge history and score each change's impact",
		Long:         "engctx mines a local git repository's merges, reconstructs PR-equivalent change units, collapses revert chains, scores net changes via an LLM, and serves a reporting API over the results.",
		SilenceUsage: true,
	}

	root.AddCommand(
		NewAnalyzeCommand(),
		NewServeCommand(),
		NewCacheCommand(),
	)

	return root
}
