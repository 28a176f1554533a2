package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pagelens/pagelens/internal/model"
)

// ErrFetchExhausted is returned by Crawl when not a single page could be
// fetched. In practice this means the seed URL itself was unreachable,
// since link discovery requires at least one successful fetch.
var ErrFetchExhausted = errors.New("no pages could be fetched")

// Spider is the crawl controller. It owns the frontier worklist, the
// visited set, and the page budget for one crawl invocation, and drives
// repeated fetch-extract cycles starting from a seed URL.
//
// Crawl state lives on the Spider rather than in ambient globals so a
// crawl session is self-contained: create a Spider, run Crawl once,
// discard it (or Reset it for reuse).
type Spider struct {
	// client performs the HTTP fetches.
	client *http.Client

	// maxDepth limits how deep to follow links from the seed URL.
	// 0 means only the seed page, 1 adds its links, and so on.
	maxDepth int

	// maxPages limits the total number of URLs claimed per crawl.
	// Claimed means counted against the budget, whether or not the
	// fetch later succeeds.
	maxPages int

	// delay is the minimum time between requests. Politeness setting;
	// zero disables it (tests do this).
	delay time.Duration

	// userAgent is the User-Agent header to send.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// requirement is the optional keep-filter: when non-empty, only
	// pages containing it (case-insensitive) are returned. Links on
	// non-matching pages are still followed.
	requirement string

	// cookie is an optional Cookie header value.
	cookie string

	// headers are optional extra request headers.
	headers map[string]string

	// logger for structured logging.
	logger *slog.Logger

	// mu guards visited and fetched. The budget check and the visited
	// insertion happen together under this lock, so the budget can
	// never be oversubscribed even if fetches run concurrently.
	mu sync.Mutex

	// visited holds canonicalized URLs already claimed.
	visited map[string]bool

	// fetched counts pages successfully fetched and extracted.
	fetched int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the page budget: the maximum number of unique URLs
// the crawl will ever claim.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the minimum delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithRequirement sets the keep-filter keyword. Pages that do not
// contain it in their title, headings, paragraphs, or main content are
// crawled for links but excluded from the result set.
func WithRequirement(requirement string) SpiderOption {
	return func(s *Spider) {
		s.requirement = requirement
	}
}

// WithCookie sets a Cookie header to send with every request.
func WithCookie(cookie string) SpiderOption {
	return func(s *Spider) {
		s.cookie = cookie
	}
}

// WithHeaders sets extra headers to send with every request.
func WithHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) {
		s.headers = headers
	}
}

// WithSpiderLogger sets a custom logger.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider using the given HTTP client.
//
// Design decision: the client is injected rather than constructed here
// because timeout configuration belongs to the caller and tests need
// to point the spider at httptest servers.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		maxDepth:    2,
		maxPages:    50,
		delay:       500 * time.Millisecond,
		userAgent:   "pagelens/1.0",
		maxBodySize: 5 * 1024 * 1024,
		visited:     make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// frontierItem is one entry in the crawl worklist: a URL and its depth
// relative to the seed.
type frontierItem struct {
	url   string
	depth int
}

// Crawl fetches pages starting from startURL and returns the pages that
// passed the requirement filter, in discovery order.
//
// Traversal is depth-first over an explicit stack: links found on a page
// are pushed in reverse so the first link in document order is processed
// first. The traversal never leaves the seed's host, never claims a URL
// twice, and never claims more than maxPages URLs.
//
// On cancellation the pages collected so far are returned along with the
// context error, so callers can render partial results.
// ErrFetchExhausted is returned when zero pages were ever fetched.
func (s *Spider) Crawl(ctx context.Context, startURL string) ([]*model.Page, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		start.Scheme = "https"
	}
	baseHost := strings.ToLower(start.Host)

	kept := make([]*model.Page, 0)
	stack := []frontierItem{{url: start.String(), depth: 0}}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return kept, ctx.Err()
		default:
		}

		// Pop (LIFO: depth-first traversal)
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		canonical, ok := s.claim(item.url)
		if !ok {
			continue
		}

		page, err := s.fetchPage(ctx, canonical)
		if err != nil {
			// Non-fatal: the URL stays claimed so it is never retried
			// within this session.
			s.logger.Debug("fetch failed", "url", canonical, "error", err)
			continue
		}

		s.mu.Lock()
		s.fetched++
		s.mu.Unlock()

		if page.Contains(s.requirement) {
			kept = append(kept, page)
		}

		// Enqueue discovered links at depth+1, reversed so that the
		// first link in document order is popped first.
		if item.depth < s.maxDepth {
			for i := len(page.Links) - 1; i >= 0; i-- {
				link := page.Links[i].URL
				if s.sameHost(baseHost, link) && !s.isVisited(link) {
					stack = append(stack, frontierItem{url: link, depth: item.depth + 1})
				}
			}
		}

		if s.delay > 0 && len(stack) > 0 {
			select {
			case <-ctx.Done():
				return kept, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	if s.Stats().PagesFetched == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFetchExhausted, start.String())
	}

	return kept, nil
}

// claim atomically checks the page budget and marks a URL visited.
// It returns the canonical URL and whether the caller now owns it.
// The budget check and the insertion happen under one lock, so at most
// maxPages URLs are ever claimed even with concurrent callers.
func (s *Spider) claim(pageURL string) (string, bool) {
	canonical := canonicalURL(pageURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visited[canonical] || len(s.visited) >= s.maxPages {
		return canonical, false
	}
	s.visited[canonical] = true
	return canonical, true
}

// isVisited checks whether a URL was already claimed. This is a cheap
// pre-filter for enqueueing; claim remains the authoritative check.
func (s *Spider) isVisited(pageURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visited[canonicalURL(pageURL)]
}

// fetchPage fetches one URL and extracts its content.
func (s *Spider) fetchPage(ctx context.Context, pageURL string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if s.cookie != "" {
		req.Header.Set("Cookie", s.cookie)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")

	var page *model.Page
	if contentType == "" || strings.Contains(contentType, "html") {
		parser, err := NewParser(pageURL)
		if err != nil {
			return nil, err
		}
		page, err = parser.Parse(strings.NewReader(string(body)))
		if err != nil {
			return nil, err
		}
	} else {
		// Non-HTML responses keep their envelope but have no content
		// to extract.
		page = &model.Page{URL: pageURL, Metadata: make(map[string]string)}
	}

	page.StatusCode = resp.StatusCode
	page.ContentType = contentType
	page.Headers = resp.Header
	page.FetchedAt = time.Now()

	return page, nil
}

// sameHost reports whether a URL's host matches the crawl's base host.
// Cross-domain links are never followed.
func (s *Spider) sameHost(baseHost, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, baseHost)
}

// Reset clears crawl state so the Spider can run another session.
func (s *Spider) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visited = make(map[string]bool)
	s.fetched = 0
}

// Stats returns current crawl statistics.
func (s *Spider) Stats() SpiderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SpiderStats{
		PagesVisited: len(s.visited),
		PagesFetched: s.fetched,
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesVisited is the number of unique URLs claimed against the
	// budget, including URLs whose fetch failed.
	PagesVisited int

	// PagesFetched is the number of pages successfully fetched and
	// extracted.
	PagesFetched int
}

// canonicalURL reduces a URL to the stable comparable form used for
// deduplication: fragment stripped, scheme and host lowercased, empty
// path normalized to "/". Query strings are preserved since they select
// distinct content. Canonicalization is idempotent.
func canonicalURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
