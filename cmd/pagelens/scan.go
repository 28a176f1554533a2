package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/database"
	"github.com/pagelens/pagelens/internal/log"
	"github.com/pagelens/pagelens/internal/model"
	"github.com/pagelens/pagelens/internal/pipeline"
	"github.com/pagelens/pagelens/internal/report"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Crawl a website and analyze its content",
		Long: `Scan fetches web pages, extracts their content, and scores each page.

Every page gets a summary, key points, topics, a content type label, and
an importance score. When a requirement keyword is given, only pages
containing it are kept and results are sorted by relevance.

Examples:
  # Analyze a single page
  pagelens scan https://example.com

  # Crawl same-domain links up to depth 2
  pagelens scan --crawl https://example.com

  # Crawl and rank pages against a requirement
  pagelens scan --crawl --requirement "pricing" https://example.com

  # Scan multiple sites concurrently
  pagelens scan --crawl site1.com site2.com site3.com

  # Write a Markdown report to a file
  pagelens scan --format markdown --output report.md https://example.com

  # Use a custom configuration file
  pagelens scan -c myconfig.yaml https://example.com

Configuration file (.pagelens) example:
  sites:
    docs.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 3
    news.example.com:
      requirement: "technology"
      delayMillis: 1000`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl behavior flags
	cmd.Flags().StringP("requirement", "r", "",
		"Keyword or phrase to match pages against (filters and ranks results)")
	cmd.Flags().Bool("crawl", false,
		"Follow same-domain links instead of fetching only the given page")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum crawl recursion depth (with --crawl)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl per site")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Delay between requests to the same site")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with requests")
	cmd.Flags().Int("min-topic-frequency", config.DefaultMinTopicFrequency,
		"Minimum occurrences before a word is reported as a topic")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pagelens in current or home directory)")

	// Report flags
	cmd.Flags().StringP("format", "f", config.FormatText,
		"Report format: text, markdown, html, or json")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential sanitization.
	// Site configs may carry cookies and auth headers.
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Requirement, err = cmd.Flags().GetString("requirement")
	if err != nil {
		return nil, err
	}

	cfg.Crawl, err = cmd.Flags().GetBool("crawl")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.MinTopicFrequency, err = cmd.Flags().GetInt("min-topic-frequency")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.Format, err = cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}

	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Without --crawl only the seed page is fetched and analyzed.
	if !cfg.Crawl {
		cfg.CrawlDepth = 0
		cfg.MaxPages = 1
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	// Always save to database using XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Get positional arguments (seed URLs)
	cfg.Targets = args

	return cfg, nil
}

// runScan executes the scan.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scan",
		"targets", cfg.Targets,
		"crawl", cfg.Crawl,
		"requirement", cfg.Requirement,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Build the shared HTTP client. The client enforces the per-request
	// timeout; the crawl as a whole is bounded by the signal context.
	client := &http.Client{Timeout: cfg.Timeout}

	// Use batch processor for parallel scanning if multiple targets
	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchScan(ctx, cfg, client, db, logger)
	}

	// Single target or sequential scanning
	return runSequentialScan(ctx, cfg, client, db, logger)
}

// runSequentialScan scans targets one at a time.
func runSequentialScan(ctx context.Context, cfg *config.Config, client *http.Client, db *database.CrawlDB, logger *slog.Logger) error {
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Get site-specific configuration
		siteConfig := getSiteConfig(cfg, target)

		// Create pipeline with site-specific options
		p := createPipelineForTarget(client, logger, cfg, siteConfig)

		// Site config can override the requirement keyword
		requirement := cfg.Requirement
		if siteConfig.Requirement != "" {
			requirement = siteConfig.Requirement
		}

		crawlReport := model.NewCrawlReport(target, requirement)

		fmt.Fprintf(os.Stderr, "Scanning %s...\n", target)
		startTime := time.Now()

		// Execute the pipeline
		if err := p.Execute(ctx, crawlReport); err != nil {
			logger.Error("scan failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Scan error for %s: %v\n", target, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Fprintf(os.Stderr, "Scan completed in %s\n\n", elapsed.Round(time.Millisecond))

		// Generate and output report
		if err := outputReport(cfg, crawlReport); err != nil {
			logger.Error("report failed", "target", target, "error", err)
		}

		// Save to database if enabled
		if err := saveCrawlReport(ctx, db, crawlReport, logger); err != nil {
			logger.Error("failed to save crawl report", "target", target, "error", err)
		}
	}

	return nil
}

// runBatchScan scans multiple targets concurrently using BatchProcessor.
func runBatchScan(ctx context.Context, cfg *config.Config, client *http.Client, db *database.CrawlDB, logger *slog.Logger) error {
	fmt.Fprintf(os.Stderr, "Starting batch scan of %d targets (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	// Warn user about batch processing limitation
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch processing uses default site config only; site-specific configs (cookies, headers, depth) are ignored",
			"siteCount", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: Site-specific configurations are ignored in batch mode. Use sequential mode (--batch 1) to apply per-site settings.\n\n")
	}

	// Create batch processor with pipeline factory
	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			// Note: For batch processing, we use default site config
			// Site-specific configs would require per-target pipeline creation
			var siteConfig config.SiteConfig
			if cfg.SiteConfigs != nil {
				siteConfig = cfg.SiteConfigs.Defaults
			}
			return createPipelineForTarget(client, logger, cfg, siteConfig)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchRequirement(cfg.Requirement),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(crawlReport *model.CrawlReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(os.Stderr, "[%d/%d] Scan completed: %s\n", index+1, len(cfg.Targets), crawlReport.BaseURL)

		// Generate and output report
		if err := outputReport(cfg, crawlReport); err != nil {
			logger.Error("report failed", "target", crawlReport.BaseURL, "error", err)
		}

		// Save to database if enabled
		if err := saveCrawlReport(ctx, db, crawlReport, logger); err != nil {
			logger.Error("failed to save crawl report", "target", crawlReport.BaseURL, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "\nBatch scan completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// getSiteConfig returns the merged site configuration for a target URL.
// Site entries are keyed by hostname, so the target is parsed first.
func getSiteConfig(cfg *config.Config, target string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	return cfg.SiteConfigs.GetSiteConfig(targetHost(target))
}

// targetHost extracts the hostname from a target URL, tolerating URLs
// given without a scheme (e.g. "example.com/docs").
func targetHost(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + target)
		if err != nil {
			return ""
		}
	}
	return u.Hostname()
}

// createPipelineForTarget creates a pipeline with the given configuration.
func createPipelineForTarget(client *http.Client, logger *slog.Logger, cfg *config.Config, siteConfig config.SiteConfig) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}

	// Determine crawl depth and delay (site-specific overrides global).
	// Single-page mode keeps depth at zero regardless of site config.
	crawlDepth := cfg.CrawlDepth
	if cfg.Crawl && siteConfig.Depth > 0 {
		crawlDepth = siteConfig.Depth
	}
	crawlDelay := cfg.CrawlDelay
	if siteConfig.DelayMillis > 0 {
		crawlDelay = time.Duration(siteConfig.DelayMillis) * time.Millisecond
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineCrawlDepth(crawlDepth),
		pipeline.WithPipelineCrawlMaxPages(cfg.MaxPages),
		pipeline.WithPipelineCrawlDelay(crawlDelay),
		pipeline.WithPipelineUserAgent(cfg.UserAgent),
		pipeline.WithPipelineMaxBodySize(cfg.MaxBodySize),
		pipeline.WithPipelineMinTopicFrequency(cfg.MinTopicFrequency),
	}

	// Add cookie if configured
	if siteConfig.Cookie != "" {
		configOpts = append(configOpts, pipeline.WithPipelineCookie(siteConfig.Cookie))
	}

	// Add custom headers if configured
	if len(siteConfig.Headers) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineHeaders(siteConfig.Headers))
	}

	return pipeline.DefaultPipeline(client, pipelineOpts, configOpts...)
}

// newReportWriter returns the report writer for the requested format.
func newReportWriter(format string, output io.Writer, verbose bool) report.Writer {
	switch format {
	case config.FormatMarkdown:
		return report.NewMarkdownWriter(output)
	case config.FormatHTML:
		return report.NewHTMLWriter(output)
	case config.FormatJSON:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	default:
		return report.NewTextWriter(output, report.WithVerbose(verbose))
	}
}

// outputReport outputs the crawl report in the requested format.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	// Determine output destination
	var output *os.File
	if cfg.OutputFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.OutputFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with secure permissions (0600)
		// Reports may include content from sites behind authentication
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	writer := newReportWriter(cfg.Format, output, cfg.Verbose)
	_, err := writer.Write(crawlReport)
	return err
}

// saveCrawlReport saves the crawl report and its pages to the database.
// If db is nil, this function is a no-op.
func saveCrawlReport(ctx context.Context, db *database.CrawlDB, crawlReport *model.CrawlReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveCrawlReport(ctx, crawlReport); err != nil {
		return fmt.Errorf("failed to save crawl report: %w", err)
	}

	if err := db.SavePages(ctx, crawlReport); err != nil {
		return fmt.Errorf("failed to save page records: %w", err)
	}

	logger.Info("crawl report saved to database", "target", crawlReport.BaseURL)
	return nil
}
