package model

import (
	"sort"
	"time"
)

// PageResult pairs an extracted page with its analysis.
type PageResult struct {
	// Page is the extracted page content.
	Page *Page `json:"page"`

	// Analysis is the scored view of the page.
	Analysis *Analysis `json:"analysis"`
}

// CrawlReport is the aggregate result of one crawl invocation.
//
// Design decision: failures that should not crash the caller (seed page
// without a title, cancelled crawls) are represented as fields on the
// report rather than returned errors, so the CLI can always render an
// error report instead of aborting.
type CrawlReport struct {
	// BaseURL is the seed URL the crawl started from.
	BaseURL string `json:"base_url"`

	// Requirement is the optional keyword/phrase pages were matched
	// against. Empty when the crawl had no requirement.
	Requirement string `json:"requirement,omitempty"`

	// DateScanned is when the crawl started.
	DateScanned time.Time `json:"date_scanned"`

	// TotalPagesCrawled is the number of unique URLs claimed during the
	// crawl, including URLs whose fetch failed. This equals the size of
	// the visited set and never exceeds the page budget.
	TotalPagesCrawled int `json:"total_pages_crawled"`

	// MatchingPages holds the kept pages with their analyses. When
	// Requirement is set the slice is sorted by relevance score
	// descending; otherwise it preserves crawl-discovery order.
	MatchingPages []PageResult `json:"matching_pages"`

	// TimedOut is true when the crawl was cancelled or interrupted and
	// MatchingPages holds partial results.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error holds a soft failure message (e.g. no page yielded a title).
	// The report is still renderable when Error is set.
	Error string `json:"error,omitempty"`

	// Pages carries the raw crawled pages between pipeline steps.
	// Excluded from JSON: MatchingPages is the canonical output.
	Pages []*Page `json:"-"`
}

// NewCrawlReport creates an empty report for the given seed URL and
// optional requirement.
func NewCrawlReport(baseURL, requirement string) *CrawlReport {
	return &CrawlReport{
		BaseURL:       baseURL,
		Requirement:   requirement,
		DateScanned:   time.Now(),
		MatchingPages: make([]PageResult, 0),
	}
}

// AddResult appends a scored page to the report in crawl order.
func (r *CrawlReport) AddResult(page *Page, analysis *Analysis) {
	r.MatchingPages = append(r.MatchingPages, PageResult{Page: page, Analysis: analysis})
}

// SortByRelevance stable-sorts MatchingPages by relevance score in
// descending order. Stability preserves crawl order among equal scores.
func (r *CrawlReport) SortByRelevance() {
	sort.SliceStable(r.MatchingPages, func(i, j int) bool {
		return r.MatchingPages[i].Analysis.RelevanceScore > r.MatchingPages[j].Analysis.RelevanceScore
	})
}

// HasContent reports whether at least one kept page produced a title.
// A crawl where no page has a title is considered a weak-content result
// and surfaces as a soft error.
func (r *CrawlReport) HasContent() bool {
	for _, pr := range r.MatchingPages {
		if pr.Page != nil && pr.Page.Title != "" {
			return true
		}
	}
	return false
}
