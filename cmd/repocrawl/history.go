package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/repocrawl/internal/config"
	"github.com/nao1215/repocrawl/internal/database"
	"github.com/nao1215/repocrawl/internal/model"
	"github.com/nao1215/repocrawl/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [repository-url]",
		Short: "Show stored crawl sessions",
		Long: `History reads the crawl sessions stored in the database.

Without arguments it lists every repository that has been crawled. With a
repository address it lists that repository's sessions, newest first.

Examples:
  # List crawled repositories
  repocrawl history

  # List the sessions of a repository
  repocrawl history https://github.com/o/r

  # Show the report of a stored session
  repocrawl history --id 5

  # Compare the latest two sessions of a repository
  repocrawl history --compare https://github.com/o/r`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("id", "i", 0,
		"Show the stored session with this ID")
	cmd.Flags().Bool("compare", false,
		"Compare the latest two sessions of the repository")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	// validate before opening the database so bad input never locks it
	var root string
	if len(args) == 1 {
		root, err = model.RootAddress(args[0])
		if err != nil {
			return fmt.Errorf("invalid repository address: %w", err)
		}
	}
	if compare && root == "" {
		return errors.New("repository address is required with --compare")
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	switch {
	case id > 0:
		return showSession(ctx, db, out, id, jsonOutput)
	case compare:
		return compareLatest(ctx, db, out, root, jsonOutput)
	case root != "":
		return listHistory(ctx, db, out, root)
	default:
		return listRepositories(ctx, db, out)
	}
}

// listRepositories lists every repository with a stored session.
func listRepositories(ctx context.Context, db *database.StatsDB, out io.Writer) error {
	roots, err := db.ListCrawledRepositories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	if len(roots) == 0 {
		fmt.Fprintln(out, "No crawled repositories found in the database.")
		fmt.Fprintln(out, "\nUse 'repocrawl crawl <repository-url>' to crawl a repository.")
		return nil
	}

	fmt.Fprintf(out, "Crawled repositories (%d):\n\n", len(roots))
	for _, root := range roots {
		fmt.Fprintf(out, "  • %s\n", root)
	}
	fmt.Fprintln(out, "\nUse 'repocrawl history <repository-url>' to see its sessions.")

	return nil
}

// listHistory lists the sessions of root, newest first.
func listHistory(ctx context.Context, db *database.StatsDB, out io.Writer, root string) error {
	sessions, err := db.GetCrawlHistory(ctx, root)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintf(out, "No crawl history found for %s\n", root)
		return nil
	}

	fmt.Fprintf(out, "Crawl history for %s (%d sessions):\n\n", root, len(sessions))
	fmt.Fprintf(out, "  %-6s  %-20s  %-10s  %-9s  %-8s  %s\n", "ID", "Date", "Duration", "Status", "Files", "Failures")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 72))

	for _, s := range sessions {
		fmt.Fprintf(out, "  %-6d  %-20s  %-10s  %-9s  %-8d  %d\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.Duration().Round(time.Millisecond),
			s.Status,
			s.FilesExtracted,
			s.Failures,
		)
	}

	fmt.Fprintln(out, "\nUse 'repocrawl history --id <id>' to show a session.")

	return nil
}

// showSession writes the report of a stored session. Language statistics
// are the latest stored for the repository's files.
func showSession(ctx context.Context, db *database.StatsDB, out io.Writer, id int64, jsonOutput bool) error {
	result, err := db.GetCrawlResultByID(ctx, id)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("crawl session %d not found", id)
	}

	files, err := db.ListFileStats(ctx, result.Root+"/")
	if err != nil {
		return fmt.Errorf("failed to list file statistics: %w", err)
	}

	var w report.Writer = report.NewSimpleWriter(out)
	if jsonOutput {
		w = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	}

	_, err = w.Write(model.NewRepositoryReport(result, files))
	return err
}

// SessionDelta is the difference between two crawl sessions of a repository.
type SessionDelta struct {
	Root     string             `json:"root"`
	Previous *model.CrawlResult `json:"previous"`
	Current  *model.CrawlResult `json:"current"`

	DirectoriesDelta int `json:"directories_delta"`
	FilesDelta       int `json:"files_delta"`
	FailuresDelta    int `json:"failures_delta"`
	SkippedDelta     int `json:"skipped_delta"`

	DurationDelta time.Duration `json:"duration_delta"`
}

// compareSessions computes the delta from previous to current.
func compareSessions(previous, current *model.CrawlResult) *SessionDelta {
	failures := func(r *model.CrawlResult) int {
		return r.ExtractionFailures + len(r.FailedBranches)
	}

	return &SessionDelta{
		Root:             current.Root,
		Previous:         previous,
		Current:          current,
		DirectoriesDelta: current.DirectoriesExpanded - previous.DirectoriesExpanded,
		FilesDelta:       current.FilesExtracted - previous.FilesExtracted,
		FailuresDelta:    failures(current) - failures(previous),
		SkippedDelta:     current.Skipped - previous.Skipped,
		DurationDelta:    current.Duration() - previous.Duration(),
	}
}

// compareLatest compares the latest two sessions of root.
func compareLatest(ctx context.Context, db *database.StatsDB, out io.Writer, root string, jsonOutput bool) error {
	sessions, err := db.GetCrawlHistory(ctx, root)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}
	if len(sessions) < 2 {
		return fmt.Errorf("at least two sessions are required to compare, found %d for %s", len(sessions), root)
	}

	current, err := db.GetCrawlResultByID(ctx, sessions[0].ID)
	if err != nil {
		return err
	}
	previous, err := db.GetCrawlResultByID(ctx, sessions[1].ID)
	if err != nil {
		return err
	}
	if current == nil || previous == nil {
		return errors.New("crawl session disappeared while comparing")
	}

	delta := compareSessions(previous, current)

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(delta)
	}

	writeDelta(out, delta)
	return nil
}

func writeDelta(out io.Writer, d *SessionDelta) {
	fmt.Fprintf(out, "Session Comparison: %s\n", d.Root)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious crawl: %s (%s)\n", d.Previous.StartedAt.Local().Format("2006-01-02 15:04:05"), d.Previous.Status())
	fmt.Fprintf(out, "Current crawl:  %s (%s)\n", d.Current.StartedAt.Local().Format("2006-01-02 15:04:05"), d.Current.Status())

	fmt.Fprintf(out, "\n  %-22s  %-10s  %-10s  %s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 55))
	row := func(name string, prev, cur, delta int) {
		fmt.Fprintf(out, "  %-22s  %-10d  %-10d  %s\n", name, prev, cur, formatDelta(delta))
	}
	row("Directories expanded", d.Previous.DirectoriesExpanded, d.Current.DirectoriesExpanded, d.DirectoriesDelta)
	row("Files extracted", d.Previous.FilesExtracted, d.Current.FilesExtracted, d.FilesDelta)
	row("Failures",
		d.Previous.ExtractionFailures+len(d.Previous.FailedBranches),
		d.Current.ExtractionFailures+len(d.Current.FailedBranches),
		d.FailuresDelta)
	row("Skipped entries", d.Previous.Skipped, d.Current.Skipped, d.SkippedDelta)

	fmt.Fprintf(out, "\nDuration: %s -> %s\n",
		d.Previous.Duration().Round(time.Millisecond),
		d.Current.Duration().Round(time.Millisecond))
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
