package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/database"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command inspects crawl reports stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show crawl history stored in the database",
		Long: `History lists past crawl reports saved by 'pagelens scan'.

Every completed scan is stored in a local SQLite database. This command
shows what has been crawled, when, and how many pages matched.

Examples:
  # List crawl history for a site
  pagelens history https://example.com

  # List all sites in the database
  pagelens history --list-sites

  # Re-render a stored report by ID (use the ID column from the listing)
  pagelens history --show 5 https://example.com

  # Re-render a stored report as Markdown
  pagelens history --show 5 --format markdown https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list-sites", "L", false,
		"List all sites in the database")

	// Report rendering flags
	cmd.Flags().Int64P("show", "s", 0,
		"Render a stored crawl report by ID (use the listing to see available IDs)")
	cmd.Flags().StringP("format", "f", config.FormatText,
		"Report format for --show: text, markdown, html, or json")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	// Handle --list-sites flag first (requires database but no URL)
	listSites, err := cmd.Flags().GetBool("list-sites")
	if err != nil {
		return err
	}

	// Validate arguments before opening database (unless --list-sites)
	// This prevents database lock issues when validation fails
	var target string
	if !listSites {
		if len(args) == 0 {
			return errors.New("url is required (use --list-sites to see available sites)")
		}
		target = args[0]
	}

	// Use XDG data directory for database
	dbDir := config.XDGDataDir()

	// Open database
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Handle --list-sites flag
	if listSites {
		return listCrawledSites(ctx, db)
	}

	// Handle --show flag
	showID, err := cmd.Flags().GetInt64("show")
	if err != nil {
		return err
	}
	if showID > 0 {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		return showStoredReport(ctx, cmd, db, target, showID, format)
	}

	return listCrawlHistory(ctx, db, target)
}

// listCrawledSites lists all sites that have crawl records in the database.
func listCrawledSites(ctx context.Context, db *database.CrawlDB) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if len(sites) == 0 {
		fmt.Println("No crawled sites found in the database.")
		fmt.Println("\nUse 'pagelens scan <url>' to scan a site.")
		return nil
	}

	fmt.Printf("Crawled sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Printf("  • %s\n", site)
	}
	fmt.Println("\nUse 'pagelens history <url>' to see crawl history for a site.")

	return nil
}

// listCrawlHistory lists all crawl records for a specific site.
func listCrawlHistory(ctx context.Context, db *database.CrawlDB, target string) error {
	reports, err := db.GetCrawlHistoryWithMetadata(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(reports) == 0 {
		fmt.Printf("No crawl history found for %s\n", target)
		fmt.Println("\nUse 'pagelens scan' to scan this site.")
		return nil
	}

	fmt.Printf("Crawl history for %s (%d scans):\n\n", target, len(reports))
	fmt.Printf("  %-6s  %-20s  %-8s  %-8s  %s\n", "ID", "Date", "Crawled", "Matched", "Requirement")
	fmt.Println("  " + strings.Repeat("-", 70))

	for _, meta := range reports {
		fmt.Printf("  %-6d  %-20s  %-8d  %-8d  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.PagesCrawled,
			meta.MatchingPages,
			formatRequirement(meta.Requirement),
		)
	}

	fmt.Println("\nUse 'pagelens history --show <id> <url>' to re-render a stored report.")

	return nil
}

// formatRequirement formats the requirement column for display.
func formatRequirement(requirement string) string {
	if requirement == "" {
		return "-"
	}
	return fmt.Sprintf("%q", requirement)
}

// showStoredReport renders a stored crawl report in the requested format.
func showStoredReport(ctx context.Context, cmd *cobra.Command, db *database.CrawlDB, target string, id int64, format string) error {
	switch format {
	case config.FormatText, config.FormatMarkdown, config.FormatHTML, config.FormatJSON:
	default:
		return fmt.Errorf("unknown report format %q", format)
	}

	crawlReport, err := db.GetCrawlReportByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get crawl report with ID %d: %w", id, err)
	}
	if crawlReport == nil {
		return fmt.Errorf("crawl report with ID %d not found", id)
	}

	// Validate that the report belongs to the requested site
	if crawlReport.BaseURL != target {
		return fmt.Errorf("crawl report %d belongs to %s, not %s", id, crawlReport.BaseURL, target)
	}

	writer := newReportWriter(format, cmd.OutOrStdout(), getVerboseFlag(cmd))
	_, err = writer.Write(crawlReport)
	return err
}
