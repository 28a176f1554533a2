package crawler

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/pagelens/pagelens/internal/model"
)

// Elements whose subtrees are excluded from the main-content fallback.
// These hold navigation chrome and code, not readable body text.
var excludedFromBody = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"footer": true,
	"header": true,
}

// minParagraphLength is the trimmed-text length a <p> element must
// exceed to be recorded. Shorter paragraphs are typically captions,
// timestamps, or button labels.
const minParagraphLength = 20

// Parser extracts structured content from HTML.
//
// Design decision: we use golang.org/x/net/html rather than regex
// because:
//  1. It correctly handles the malformed HTML common on the web
//  2. It provides a proper DOM-like structure to walk
//  3. Malformed or empty input still parses to a (possibly empty) tree,
//     which gives us the "never fail on bad HTML" guarantee for free
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving
	// relative link and image targets.
	baseURL *url.URL
}

// NewParser creates a parser for a page at the given URL.
// The URL is used to resolve relative references.
func NewParser(pageURL string) (*Parser, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	return &Parser{baseURL: u}, nil
}

// Parse extracts a model.Page from HTML content. Malformed or empty
// input yields a page with empty fields rather than an error; the only
// error source is the reader itself.
func (p *Parser) Parse(content io.Reader) (*model.Page, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &model.Page{
		URL:      p.baseURL.String(),
		Metadata: make(map[string]string),
	}

	var mainParts []string
	var body *html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if page.Title == "" {
					page.Title = nodeText(n)
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if text := nodeText(n); text != "" {
					tag := strings.ToUpper(n.Data)
					page.Headings = append(page.Headings, tag+": "+text)
				}
			case "p":
				if text := nodeText(n); len(text) > minParagraphLength {
					page.Paragraphs = append(page.Paragraphs, text)
				}
			case "a":
				if href, ok := attr(n, "href"); ok {
					if resolved := p.resolveURL(href); resolved != "" && len(page.Links) < model.MaxLinks {
						page.Links = append(page.Links, model.Link{
							URL:  resolved,
							Text: nodeText(n),
						})
					}
				}
			case "img":
				if src, _ := attr(n, "src"); src != "" {
					if resolved := p.resolveURL(src); resolved != "" && len(page.Images) < model.MaxImages {
						alt, _ := attr(n, "alt")
						page.Images = append(page.Images, model.Image{
							URL: resolved,
							Alt: alt,
						})
					}
				}
			case "meta":
				name, _ := attr(n, "name")
				if name == "" {
					name, _ = attr(n, "property") // OpenGraph uses property
				}
				if content, _ := attr(n, "content"); name != "" && content != "" {
					page.Metadata[name] = content
				}
			case "main", "article":
				mainParts = append(mainParts, nodeText(n))
			case "body":
				body = n
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	page.MainContent = mainContent(mainParts, body)

	return page, nil
}

// mainContent builds the best-effort body text: the joined text of all
// <main>/<article> elements when any exist, otherwise the full body text
// with script/style/nav/footer/header subtrees removed.
func mainContent(mainParts []string, body *html.Node) string {
	if len(mainParts) > 0 {
		return strings.Join(mainParts, " ")
	}
	if body == nil {
		return ""
	}

	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && excludedFromBody[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(body)

	return normalizeSpace(sb.String())
}

// resolveURL resolves a possibly-relative reference against the page URL.
// Unparsable references resolve to "". Already-absolute URIs (including
// mailto: and tel:) pass through unchanged; the Spider separately refuses
// to follow anything off the seed host.
func (p *Parser) resolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	return p.baseURL.ResolveReference(u).String()
}

// nodeText returns the whitespace-normalized text of a node's subtree.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	return normalizeSpace(sb.String())
}

// normalizeSpace collapses runs of whitespace to single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// attr retrieves an attribute value from an HTML node.
// The second return reports whether the attribute was present at all,
// which matters for href (an empty href is still an anchor).
func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
