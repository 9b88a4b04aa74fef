package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for repocrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repocrawl",
		Short: "Crawl hosted repositories and collect file statistics",
		Long: `repocrawl walks the directory tree of a hosted source repository through
its web pages, concurrently, and extracts statistics (language, lines, size)
for every file it discovers.

Results are stored in a SQLite database in the XDG data directory so that
later runs can skip unchanged work and crawl history can be inspected.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
