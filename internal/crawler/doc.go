// Package crawler provides the crawl controller and content extractor.
//
// # Architecture
//
// The package is built around two types:
//
//   - Spider: the crawl controller. It owns the frontier worklist, the
//     visited set, and the page budget, and drives repeated
//     fetch-extract cycles from a seed URL.
//   - Parser: the content extractor. It turns raw HTML into a
//     model.Page with title, headings, paragraphs, links, images,
//     metadata, and main content.
//
// Design decision: we implement our own crawler rather than using a
// third-party library because:
//  1. The budget semantics are strict (URLs are claimed against the
//     budget before fetching, so a budget of N never touches N+1 URLs)
//  2. We need tight control over request pacing
//  3. The extraction policy is specific to the analyzer downstream
//
// # Traversal
//
// The Spider uses an explicit worklist (a stack with a depth tag per
// entry) instead of recursion. Links discovered on a page are pushed in
// reverse, so traversal is depth-first in document order and fully
// deterministic. Crawling never leaves the seed URL's host.
//
// # Politeness
//
//   - Minimum delay between fetches (configurable, zero for tests)
//   - Descriptive User-Agent
//   - Response bodies are size-limited
//
// # Usage
//
//	spider := crawler.NewSpider(httpClient, crawler.WithMaxDepth(2))
//	pages, err := spider.Crawl(ctx, "https://example.com")
package crawler
