package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These mirror the original tool's CLI
// defaults where applicable and are deliberately conservative for
// crawling third-party sites.
const (
	// DefaultTimeout is the per-request HTTP timeout. 30 seconds is
	// generous enough for slow sites without hanging a crawl on one URL.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth limits recursion from the seed page. Depth 2
	// reaches the seed, its links, and their links, which covers most
	// site sections without exploding the frontier.
	DefaultCrawlDepth = 2

	// DefaultMaxPages caps the total pages claimed per crawl. This
	// prevents runaway crawling on large or infinitely-generating sites.
	DefaultMaxPages = 50

	// DefaultCrawlDelay is the minimum delay between fetches. This is a
	// politeness setting to avoid overloading the target host. 500ms is
	// the floor recommended for respectful crawling; tests set it to zero.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies pagelens in HTTP requests. A descriptive
	// User-Agent lets site operators identify crawler traffic in logs.
	DefaultUserAgent = "pagelens/1.0 (+https://github.com/pagelens/pagelens)"

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB covers any realistic HTML page while bounding memory use.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultBatchSize is the number of seed URLs scanned concurrently
	// when multiple targets are given.
	DefaultBatchSize = 4

	// DefaultMinTopicFrequency is the minimum number of occurrences a
	// word needs before the analyzer reports it as a topic.
	DefaultMinTopicFrequency = 3

	// AppName is the application name used for XDG directory paths.
	AppName = "pagelens"
)

// Output formats accepted by the --format flag.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// Config holds all settings for one pagelens invocation. It is populated
// from CLI flags and passed through the application by value reference
// rather than global state.
//
// Design decision: a single flat struct instead of nested sub-configs.
// The option count is manageable and nesting would add indirection
// without benefit.
type Config struct {
	// Targets is the list of seed URLs to scan. At least one is required.
	Targets []string

	// Requirement is the optional keyword/phrase to match pages against.
	// When set, only pages containing it are kept and results are sorted
	// by relevance.
	Requirement string

	// Crawl enables following same-domain links. When false only the
	// seed page is fetched and analyzed.
	Crawl bool

	// CrawlDepth is the maximum link depth from the seed page.
	// Depth 0 means only the seed page.
	CrawlDepth int

	// MaxPages is the maximum number of unique URLs to claim per crawl.
	MaxPages int

	// Timeout is the HTTP timeout for each request.
	Timeout time.Duration

	// CrawlDelay is the minimum delay between fetches.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Larger responses are truncated. Zero means the default.
	MaxBodySize int64

	// Format selects the report renderer: text, markdown, html, or json.
	Format string

	// OutputFile is the report destination. Empty writes to stdout.
	// Parent directories are created as needed.
	OutputFile string

	// BatchSize is the number of concurrent scans when multiple targets
	// are given.
	BatchSize int

	// MinTopicFrequency is the analyzer's topic frequency threshold.
	MinTopicFrequency int

	// Verbose enables slog.LevelDebug output. When false only warnings
	// and errors are logged.
	Verbose bool

	// ConfigFilePath is an explicit path to the .pagelens config file.
	// Empty means search the current directory and then the home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory for the SQLite crawl history database.
	// Empty disables persistence.
	DBDir string

	// SaveToDB indicates whether completed reports are stored in the
	// history database.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
//
// Design decision: a constructor instead of relying on zero values,
// because most defaults are non-zero (timeout, depth, budget). It also
// documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		CrawlDepth:        DefaultCrawlDepth,
		MaxPages:          DefaultMaxPages,
		Timeout:           DefaultTimeout,
		CrawlDelay:        DefaultCrawlDelay,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		Format:            FormatText,
		BatchSize:         DefaultBatchSize,
		MinTopicFrequency: DefaultMinTopicFrequency,
	}
}

// XDGDataDir returns the XDG data directory for pagelens, used for the
// crawl history database.
// On Linux: ~/.local/share/pagelens
// On macOS: ~/Library/Application Support/pagelens
// On Windows: %LOCALAPPDATA%\pagelens
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pagelens.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns a sentinel error
// describing the first problem found. It is called once after CLI
// parsing, before any network activity.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.CrawlDepth < 0 {
		return ErrInvalidDepth
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	switch c.Format {
	case FormatText, FormatMarkdown, FormatHTML, FormatJSON:
	default:
		return ErrInvalidFormat
	}

	return nil
}
