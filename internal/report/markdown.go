package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/pagelens/pagelens/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)

	for i, result := range report.MatchingPages {
		w.writePage(md, i+1, result)
	}

	if len(report.MatchingPages) == 0 {
		md.PlainText("No matching pages found.")
		md.PlainText("")
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Pagelens Report")
	md.PlainText("")

	rows := [][]string{
		{"Base URL", "`" + report.BaseURL + "`"},
		{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
		{"Pages Crawled", strconv.Itoa(report.TotalPagesCrawled)},
		{"Matching Pages", strconv.Itoa(len(report.MatchingPages))},
		{"Status", w.getStatusText(report)},
	}
	if report.Requirement != "" {
		rows = append(rows[:1], append([][]string{{"Requirement", "`" + report.Requirement + "`"}}, rows[1:]...)...)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeAlert(md, report)
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.CrawlReport) string {
	if report.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if report.Error != "" {
		return "❌ Error - " + report.Error
	}
	return "✅ Complete"
}

// writeAlert writes an appropriate alert based on the report state.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case report.TimedOut:
		md.Warningf(
			"The crawl was interrupted. %d page(s) were collected before cancellation.",
			len(report.MatchingPages),
		)
	case report.Error != "":
		md.Cautionf("The crawl finished with an error: %s", report.Error)
	case report.Requirement != "" && len(report.MatchingPages) == 0:
		md.Note(fmt.Sprintf("No page matched the requirement %q.", report.Requirement))
	default:
		md.Tip(fmt.Sprintf("%d matching page(s) out of %d crawled.", len(report.MatchingPages), report.TotalPagesCrawled))
	}
	md.PlainText("")
}

// writePage writes one page section with its analysis.
func (w *MarkdownWriter) writePage(md *markdown.Markdown, rank int, result model.PageResult) {
	page := result.Page
	analysis := result.Analysis

	title := page.Title
	if title == "" {
		title = page.URL
	}
	md.H2(fmt.Sprintf("%d. %s", rank, title))
	md.PlainText("")

	rows := [][]string{
		{"URL", "`" + page.URL + "`"},
		{"Content Type", string(analysis.ContentType)},
		{"Word Count", strconv.Itoa(analysis.WordCount)},
		{"Importance", fmt.Sprintf("%.2f/1.00", analysis.ImportanceScore)},
	}
	if analysis.RelevanceScore > 0 {
		rows = append(rows, []string{"Relevance", fmt.Sprintf("%.2f/1.00", analysis.RelevanceScore)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	md.H3("Summary")
	md.PlainText("")
	md.PlainText(analysis.Summary)
	md.PlainText("")

	if len(analysis.KeyPoints) > 0 {
		md.H3("Key Points")
		md.PlainText("")
		md.BulletList(analysis.KeyPoints...)
		md.PlainText("")
	}

	if len(analysis.Topics) > 0 {
		md.H3("Identified Topics")
		md.PlainText("")
		md.PlainText("`" + strings.Join(analysis.Topics, " | ") + "`")
		md.PlainText("")
	}

	md.H3("Page Structure")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Headings", "Paragraphs", "Links", "Images"},
		Rows: [][]string{{
			strconv.Itoa(len(page.Headings)),
			strconv.Itoa(len(page.Paragraphs)),
			strconv.Itoa(len(page.Links)),
			strconv.Itoa(len(page.Images)),
		}},
	})
	md.PlainText("")

	w.writeSampleLinks(md, page)
}

// writeSampleLinks writes up to five links from the page.
func (w *MarkdownWriter) writeSampleLinks(md *markdown.Markdown, page *model.Page) {
	if len(page.Links) == 0 {
		return
	}

	md.H3("Sample Links (Top 5)")
	md.PlainText("")
	for i, link := range page.Links {
		if i == 5 {
			break
		}
		text := link.Text
		if text == "" {
			text = "No text"
		}
		md.PlainTextf("%d. [%s](%s)", i+1, truncateString(text, 50), link.URL)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pagelens](https://github.com/pagelens/pagelens)*")
}
