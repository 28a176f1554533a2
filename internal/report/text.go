package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/pagelens/pagelens/internal/model"
)

// TextWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type TextWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail in the output (metadata,
	// sample links per page).
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *TextWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)

	for i, result := range report.MatchingPages {
		w.writePage(&sb, i+1, result)
	}

	if len(report.MatchingPages) == 0 {
		sb.WriteString("  No matching pages found.\n\n")
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *TextWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         PAGELENS REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Base URL:       %s\n", report.BaseURL))
	if report.Requirement != "" {
		sb.WriteString(fmt.Sprintf("Requirement:    %q\n", report.Requirement))
	}
	sb.WriteString(fmt.Sprintf("Scan Date:      %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Pages Crawled:  %d\n", report.TotalPagesCrawled))
	sb.WriteString(fmt.Sprintf("Matching Pages: %d\n", len(report.MatchingPages)))

	switch {
	case report.TimedOut:
		sb.WriteString("Status:         TIMED OUT (partial results)\n")
	case report.Error != "":
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n", report.Error))
	default:
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writePage writes one page section with its analysis.
func (w *TextWriter) writePage(sb *strings.Builder, rank int, result model.PageResult) {
	page := result.Page
	analysis := result.Analysis

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("PAGE %d: %s\n", rank, page.Title))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("URL:           %s\n", page.URL))
	sb.WriteString(fmt.Sprintf("Content Type:  %s\n", analysis.ContentType))
	sb.WriteString(fmt.Sprintf("Word Count:    %d\n", analysis.WordCount))
	sb.WriteString(fmt.Sprintf("Importance:    %.2f/1.00\n", analysis.ImportanceScore))
	if analysis.RelevanceScore > 0 {
		sb.WriteString(fmt.Sprintf("Relevance:     %.2f/1.00\n", analysis.RelevanceScore))
	}
	sb.WriteString("\n")

	sb.WriteString("SUMMARY\n")
	sb.WriteString(analysis.Summary)
	sb.WriteString("\n\n")

	if len(analysis.KeyPoints) > 0 || w.showEmpty {
		sb.WriteString("KEY POINTS\n")
		if len(analysis.KeyPoints) == 0 {
			sb.WriteString("  None\n")
		}
		for _, point := range analysis.KeyPoints {
			sb.WriteString(fmt.Sprintf("  %s\n", point))
		}
		sb.WriteString("\n")
	}

	if len(analysis.Topics) > 0 || w.showEmpty {
		sb.WriteString("IDENTIFIED TOPICS\n")
		sb.WriteString(fmt.Sprintf("  %s\n\n", strings.Join(analysis.Topics, ", ")))
	}

	sb.WriteString("PAGE STRUCTURE\n")
	sb.WriteString(fmt.Sprintf("  Headings:   %d\n", len(page.Headings)))
	sb.WriteString(fmt.Sprintf("  Paragraphs: %d\n", len(page.Paragraphs)))
	sb.WriteString(fmt.Sprintf("  Links:      %d\n", len(page.Links)))
	sb.WriteString(fmt.Sprintf("  Images:     %d\n", len(page.Images)))
	sb.WriteString("\n")

	if w.verbose {
		w.writeSampleLinks(sb, page)
		w.writeMetadata(sb, page)
	}
}

// writeSampleLinks writes up to five links from the page.
func (w *TextWriter) writeSampleLinks(sb *strings.Builder, page *model.Page) {
	if len(page.Links) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString("SAMPLE LINKS (Top 5)\n")
	for i, link := range page.Links {
		if i == 5 {
			break
		}
		text := link.Text
		if text == "" {
			text = "No text"
		}
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, truncateString(text, 50)))
		sb.WriteString(fmt.Sprintf("     URL: %s\n", link.URL))
	}
	sb.WriteString("\n")
}

// writeMetadata writes up to ten metadata entries from the page.
func (w *TextWriter) writeMetadata(sb *strings.Builder, page *model.Page) {
	if len(page.Metadata) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString("METADATA\n")
	count := 0
	for key, value := range page.Metadata {
		if count == 10 {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s: %s\n", key, truncateString(value, 100)))
		count++
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *TextWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by pagelens\n")
	sb.WriteString("https://github.com/pagelens/pagelens\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
