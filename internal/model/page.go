package model

import (
	"strings"
	"time"
)

// Page represents one crawled web page with its extracted content.
// It holds both the HTTP response envelope and the structured content
// pulled out of the HTML.
//
// A Page is created once per successfully fetched URL and is never
// mutated afterwards; everything downstream (analyzer, report writers,
// database) treats it as read-only.
type Page struct {
	// URL is the canonical URL of the page (fragment stripped).
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains all HTTP response headers.
	// Keys are header names (canonicalized), values are slices of header values.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the MIME type from the Content-Type header.
	ContentType string `json:"content_type,omitempty"`

	// Title is the trimmed text of the <title> element.
	// Empty if the document has no title.
	Title string `json:"title,omitempty"`

	// Headings contains every non-empty heading (h1-h6) in document order,
	// tagged with its level, e.g. "H1: Welcome".
	Headings []string `json:"headings,omitempty"`

	// Paragraphs contains every <p> whose trimmed text is longer than
	// 20 characters, in document order.
	Paragraphs []string `json:"paragraphs,omitempty"`

	// Links contains the first MaxLinks anchors with an href attribute.
	// URLs are always absolute, resolved against the page URL.
	Links []Link `json:"links,omitempty"`

	// Images contains the first MaxImages <img> elements with a non-empty src.
	// URLs are always absolute, resolved against the page URL.
	Images []Image `json:"images,omitempty"`

	// Metadata maps meta tag names (name or property attribute) to their
	// content. Later duplicates overwrite earlier ones.
	Metadata map[string]string `json:"metadata,omitempty"`

	// MainContent is a best-effort extraction of the page body text.
	// It prefers <main>/<article> content and falls back to the full body
	// with script, style, nav, footer, and header subtrees removed.
	MainContent string `json:"main_content,omitempty"`

	// FetchedAt is when the page was fetched.
	FetchedAt time.Time `json:"fetched_at"`
}

// MaxLinks is the maximum number of links stored per page.
// Pages with more links are truncated in document order.
const MaxLinks = 50

// MaxImages is the maximum number of images stored per page.
const MaxImages = 20

// Link is an anchor extracted from a page.
type Link struct {
	// URL is the absolute link target.
	URL string `json:"url"`

	// Text is the trimmed visible anchor text. May be empty.
	Text string `json:"text,omitempty"`
}

// Image is an image reference extracted from a page.
type Image struct {
	// URL is the absolute image source.
	URL string `json:"url"`

	// Alt is the alt text. May be empty.
	Alt string `json:"alt,omitempty"`
}

// GetHeader returns the first value of the specified response header.
// Returns empty string if the header is not present.
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// Meta returns the content of the named meta tag, or empty string.
func (p *Page) Meta(name string) string {
	return p.Metadata[name]
}

// Description returns the page's meta description, preferring the
// standard "description" tag and falling back to OpenGraph's
// "og:description".
func (p *Page) Description() string {
	if d := p.Metadata["description"]; d != "" {
		return d
	}
	return p.Metadata["og:description"]
}

// IsHTML reports whether the response content type indicates HTML.
func (p *Page) IsHTML() bool {
	return strings.HasPrefix(p.ContentType, "text/html") ||
		strings.HasPrefix(p.ContentType, "application/xhtml+xml")
}

// Contains reports whether the requirement text appears as a
// case-insensitive substring in the title, any heading, any paragraph,
// or the main content. An empty requirement matches every page.
func (p *Page) Contains(requirement string) bool {
	if requirement == "" {
		return true
	}
	req := strings.ToLower(requirement)

	if strings.Contains(strings.ToLower(p.Title), req) {
		return true
	}
	for _, h := range p.Headings {
		if strings.Contains(strings.ToLower(h), req) {
			return true
		}
	}
	for _, para := range p.Paragraphs {
		if strings.Contains(strings.ToLower(para), req) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(p.MainContent), req)
}
