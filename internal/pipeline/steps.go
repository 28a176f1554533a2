package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pagelens/pagelens/internal/analyzer"
	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/crawler"
	"github.com/pagelens/pagelens/internal/model"
)

// ErrNoContentFound is recorded on the report when the crawl finished
// but not a single kept page produced a title.
var ErrNoContentFound = errors.New("no content found")

// CrawlStep fetches pages starting from the report's base URL.
// It discovers same-domain links up to the configured depth and stores
// the pages that pass the requirement filter on the report.
//
// Design decision: Crawling is a pipeline step rather than a direct call
// because:
// 1. It shares the report-accumulation contract with analysis
// 2. Cancellation and partial results flow through one mechanism
// 3. It keeps the CLI wiring identical for single-page and deep scans
type CrawlStep struct {
	// client is the HTTP client used for fetching.
	client *http.Client

	// maxDepth limits crawl recursion.
	maxDepth int

	// maxPages limits total pages to crawl.
	maxPages int

	// delay between requests for politeness.
	delay time.Duration

	// userAgent is the User-Agent header to send with requests.
	// A descriptive User-Agent helps site operators identify crawler traffic.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	// This prevents memory exhaustion from unexpectedly large responses.
	maxBodySize int64

	// cookie is an optional Cookie header for the target site.
	cookie string

	// headers are optional extra request headers for the target site.
	headers map[string]string

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxDepth sets the maximum crawl depth.
func WithCrawlMaxDepth(depth int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxDepth = depth
	}
}

// WithCrawlMaxPages sets the maximum pages to crawl.
func WithCrawlMaxPages(maxPages int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxPages = maxPages
	}
}

// WithCrawlDelay sets the delay between requests.
func WithCrawlDelay(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.delay = d
	}
}

// WithCrawlUserAgent sets the User-Agent header for HTTP requests.
func WithCrawlUserAgent(userAgent string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.userAgent = userAgent
	}
}

// WithCrawlMaxBodySize sets the maximum response body size in bytes.
// Responses larger than this are truncated to prevent memory exhaustion.
func WithCrawlMaxBodySize(maxBodySize int64) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxBodySize = maxBodySize
	}
}

// WithCrawlCookie sets a Cookie header for requests to the target site.
func WithCrawlCookie(cookie string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.cookie = cookie
	}
}

// WithCrawlHeaders sets extra request headers for the target site.
func WithCrawlHeaders(headers map[string]string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.headers = headers
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawling step.
//
// Default politeness settings are conservative to be respectful of the
// target site:
//   - delay: 500ms between requests (config.DefaultCrawlDelay)
//   - userAgent: identifies pagelens (config.DefaultUserAgent)
//   - maxBodySize: 5MB to prevent memory exhaustion (config.DefaultMaxBodySize)
func NewCrawlStep(client *http.Client, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client:      client,
		maxDepth:    config.DefaultCrawlDepth,
		maxPages:    config.DefaultMaxPages,
		delay:       config.DefaultCrawlDelay,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step. Cancellation mid-crawl is not an error:
// the pages collected so far stay on the report and TimedOut is set so
// downstream steps render a partial report.
func (s *CrawlStep) Do(ctx context.Context, report *model.CrawlReport) error {
	spider := crawler.NewSpider(s.client,
		crawler.WithMaxDepth(s.maxDepth),
		crawler.WithMaxPages(s.maxPages),
		crawler.WithDelay(s.delay),
		crawler.WithUserAgent(s.userAgent),
		crawler.WithMaxBodySize(s.maxBodySize),
		crawler.WithRequirement(report.Requirement),
		crawler.WithCookie(s.cookie),
		crawler.WithHeaders(s.headers),
		crawler.WithSpiderLogger(s.logger),
	)

	pages, err := spider.Crawl(ctx, report.BaseURL)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("crawl interrupted, keeping partial results",
			"pages_collected", len(pages),
		)
		report.TimedOut = true
	case err != nil:
		return err
	}

	report.Pages = pages

	stats := spider.Stats()
	report.TotalPagesCrawled = stats.PagesVisited

	s.logger.Info("crawl completed",
		"pages_visited", stats.PagesVisited,
		"pages_fetched", stats.PagesFetched,
		"pages_kept", len(pages),
	)

	return nil
}

// AnalyzeStep scores every crawled page and attaches the results to the
// report in crawl order. Analysis is pure computation over fetched
// content, so this step never touches the network.
type AnalyzeStep struct {
	// minTopicFrequency is the analyzer's topic threshold.
	minTopicFrequency int

	// logger for structured logging.
	logger *slog.Logger
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithAnalyzeMinTopicFrequency sets the topic frequency threshold.
func WithAnalyzeMinTopicFrequency(n int) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.minTopicFrequency = n
	}
}

// WithAnalyzeLogger sets a custom logger for the analyze step.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.logger = logger
	}
}

// NewAnalyzeStep creates a new analysis step.
func NewAnalyzeStep(opts ...AnalyzeStepOption) *AnalyzeStep {
	s := &AnalyzeStep{
		minTopicFrequency: config.DefaultMinTopicFrequency,
		logger:            slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do executes the analysis step.
func (s *AnalyzeStep) Do(_ context.Context, report *model.CrawlReport) error {
	if len(report.Pages) == 0 {
		s.logger.Debug("skipping analysis, no pages crawled")
		return nil
	}

	a := analyzer.NewAnalyzer(
		analyzer.WithMinTopicFrequency(s.minTopicFrequency),
	)

	for _, page := range report.Pages {
		report.AddResult(page, a.Analyze(page, report.Requirement))
	}

	s.logger.Info("analysis completed", "pages_analyzed", len(report.Pages))

	return nil
}

// AggregateStep finalizes the report: it applies the relevance sort when
// a requirement was given and flags crawls that produced no usable
// content.
type AggregateStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// AggregateStepOption configures an AggregateStep.
type AggregateStepOption func(*AggregateStep)

// WithAggregateLogger sets a custom logger for the aggregate step.
func WithAggregateLogger(logger *slog.Logger) AggregateStepOption {
	return func(s *AggregateStep) {
		s.logger = logger
	}
}

// NewAggregateStep creates a new aggregation step.
func NewAggregateStep(opts ...AggregateStepOption) *AggregateStep {
	s := &AggregateStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *AggregateStep) Name() string {
	return "aggregate"
}

// Do executes the aggregation step. A report where no page yielded a
// title gets a soft error message instead of a returned error, so the
// CLI still renders the (empty) report.
func (s *AggregateStep) Do(_ context.Context, report *model.CrawlReport) error {
	if report.Requirement != "" {
		report.SortByRelevance()
	}

	if !report.HasContent() && report.Error == "" {
		report.Error = ErrNoContentFound.Error()
	}

	s.logger.Info("aggregation completed",
		"matching_pages", len(report.MatchingPages),
		"total_crawled", report.TotalPagesCrawled,
	)

	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// CrawlDepth is the maximum depth for web crawling.
	CrawlDepth int

	// CrawlMaxPages is the maximum number of pages to crawl.
	CrawlMaxPages int

	// Cookie is the cookie string to send with HTTP requests.
	Cookie string

	// Headers are additional HTTP headers to send with requests.
	Headers map[string]string

	// CrawlDelay is the delay between HTTP requests during crawling.
	// This is a "politeness" setting to avoid overwhelming the target.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// MinTopicFrequency is the analyzer's topic frequency threshold.
	MinTopicFrequency int
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineCrawlDepth sets the crawl depth for the pipeline.
func WithPipelineCrawlDepth(depth int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlDepth = depth
	}
}

// WithPipelineCrawlMaxPages sets the maximum pages to crawl.
func WithPipelineCrawlMaxPages(maxPages int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlMaxPages = maxPages
	}
}

// WithPipelineCookie sets the cookie for HTTP requests.
func WithPipelineCookie(cookie string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Cookie = cookie
	}
}

// WithPipelineHeaders sets additional HTTP headers.
func WithPipelineHeaders(headers map[string]string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Headers = headers
	}
}

// WithPipelineCrawlDelay sets the delay between HTTP requests during
// crawling. A minimum of 500ms is recommended for respectful crawling.
func WithPipelineCrawlDelay(delay time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlDelay = delay
	}
}

// WithPipelineUserAgent sets the User-Agent header for HTTP requests.
func WithPipelineUserAgent(userAgent string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = userAgent
	}
}

// WithPipelineMaxBodySize sets the maximum response body size in bytes.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// WithPipelineMinTopicFrequency sets the analyzer topic threshold.
func WithPipelineMinTopicFrequency(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MinTopicFrequency = n
	}
}

// DefaultPipeline creates a pipeline with the standard steps configured:
// crawl, analyze, aggregate.
//
// Design decision: We provide a default pipeline because:
// 1. Every scan wants this exact sequence
// 2. Reduces boilerplate in CLI
// 3. Ensures consistent ordering
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineCrawlDepth, etc).
func DefaultPipeline(client *http.Client, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	// Apply default config with conservative politeness settings
	cfg := &DefaultPipelineConfig{
		CrawlDepth:        config.DefaultCrawlDepth,
		CrawlMaxPages:     config.DefaultMaxPages,
		CrawlDelay:        config.DefaultCrawlDelay,
		UserAgent:         config.DefaultUserAgent,
		MaxBodySize:       config.DefaultMaxBodySize,
		MinTopicFrequency: config.DefaultMinTopicFrequency,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	crawlOpts := []CrawlStepOption{
		WithCrawlMaxDepth(cfg.CrawlDepth),
		WithCrawlMaxPages(cfg.CrawlMaxPages),
		WithCrawlDelay(cfg.CrawlDelay),
		WithCrawlUserAgent(cfg.UserAgent),
		WithCrawlMaxBodySize(cfg.MaxBodySize),
	}
	if cfg.Cookie != "" {
		crawlOpts = append(crawlOpts, WithCrawlCookie(cfg.Cookie))
	}
	if len(cfg.Headers) > 0 {
		crawlOpts = append(crawlOpts, WithCrawlHeaders(cfg.Headers))
	}

	// Add steps in logical order
	p.AddSteps(
		NewCrawlStep(client, crawlOpts...),
		NewAnalyzeStep(
			WithAnalyzeMinTopicFrequency(cfg.MinTopicFrequency),
		),
		NewAggregateStep(),
	)

	return p
}
