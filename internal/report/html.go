package report

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/pagelens/pagelens/internal/model"
)

// HTMLWriter outputs self-contained HTML reports.
// This format is designed for viewing in a browser and sharing as a
// single file: the stylesheet is inlined and no external assets are
// referenced.
type HTMLWriter struct {
	baseWriter
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer) *HTMLWriter {
	return &HTMLWriter{
		baseWriter: newBaseWriter(output),
	}
}

// htmlStyle is the inline stylesheet for HTML reports.
const htmlStyle = `        body { font-family: Arial, sans-serif; margin: 20px; line-height: 1.6; }
        h1 { color: #2c3e50; border-bottom: 3px solid #3498db; }
        h2 { color: #34495e; margin-top: 30px; border-bottom: 1px solid #bdc3c7; }
        .info-grid { display: grid; grid-template-columns: 200px 1fr; gap: 10px; }
        .info-label { font-weight: bold; color: #7f8c8d; }
        .topic-tag { display: inline-block; background: #3498db; color: white;
                     padding: 5px 10px; margin: 5px; border-radius: 3px; }
        .status-error { color: #c0392b; font-weight: bold; }
        ul { list-style-type: none; padding-left: 0; }
        li { margin: 10px 0; padding-left: 20px; position: relative; }
        li:before { content: '▸'; position: absolute; left: 0; color: #3498db; }`

// Write outputs the full report as an HTML document.
// All user-controlled content is escaped before rendering.
func (w *HTMLWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("    <meta charset='UTF-8'>\n")
	sb.WriteString("    <title>Pagelens Report</title>\n")
	sb.WriteString("    <style>\n")
	sb.WriteString(htmlStyle)
	sb.WriteString("\n    </style>\n</head>\n<body>\n")
	sb.WriteString("    <h1>Pagelens Report</h1>\n")

	w.writeOverview(&sb, report)

	for i, result := range report.MatchingPages {
		w.writePage(&sb, i+1, result)
	}

	if len(report.MatchingPages) == 0 {
		sb.WriteString("    <p>No matching pages found.</p>\n")
	}

	sb.WriteString("</body>\n</html>\n")

	return w.output.Write([]byte(sb.String()))
}

// writeOverview writes the crawl-level information grid.
func (w *HTMLWriter) writeOverview(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("    <h2>Overview</h2>\n")
	sb.WriteString("    <div class='info-grid'>\n")
	writeInfoRow(sb, "Base URL:", report.BaseURL)
	if report.Requirement != "" {
		writeInfoRow(sb, "Requirement:", report.Requirement)
	}
	writeInfoRow(sb, "Scan Date:", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	writeInfoRow(sb, "Pages Crawled:", fmt.Sprintf("%d", report.TotalPagesCrawled))
	writeInfoRow(sb, "Matching Pages:", fmt.Sprintf("%d", len(report.MatchingPages)))
	sb.WriteString("    </div>\n")

	switch {
	case report.TimedOut:
		sb.WriteString("    <p class='status-error'>The crawl was interrupted; results are partial.</p>\n")
	case report.Error != "":
		sb.WriteString(fmt.Sprintf("    <p class='status-error'>Error: %s</p>\n", html.EscapeString(report.Error)))
	}
}

// writePage writes one page section with its analysis.
func (w *HTMLWriter) writePage(sb *strings.Builder, rank int, result model.PageResult) {
	page := result.Page
	analysis := result.Analysis

	title := page.Title
	if title == "" {
		title = page.URL
	}
	sb.WriteString(fmt.Sprintf("    <h2>%d. %s</h2>\n", rank, html.EscapeString(title)))

	sb.WriteString("    <div class='info-grid'>\n")
	writeInfoRow(sb, "URL:", page.URL)
	writeInfoRow(sb, "Content Type:", string(analysis.ContentType))
	writeInfoRow(sb, "Word Count:", fmt.Sprintf("%d", analysis.WordCount))
	writeInfoRow(sb, "Importance:", fmt.Sprintf("%.2f/1.00", analysis.ImportanceScore))
	if analysis.RelevanceScore > 0 {
		writeInfoRow(sb, "Relevance:", fmt.Sprintf("%.2f/1.00", analysis.RelevanceScore))
	}
	sb.WriteString("    </div>\n")

	sb.WriteString("    <h3>Summary</h3>\n")
	summary := html.EscapeString(analysis.Summary)
	summary = strings.ReplaceAll(summary, "\n", "<br>")
	sb.WriteString(fmt.Sprintf("    <p>%s</p>\n", summary))

	if len(analysis.KeyPoints) > 0 {
		sb.WriteString("    <h3>Key Points</h3>\n    <ul>\n")
		for _, point := range analysis.KeyPoints {
			sb.WriteString(fmt.Sprintf("        <li>%s</li>\n", html.EscapeString(point)))
		}
		sb.WriteString("    </ul>\n")
	}

	if len(analysis.Topics) > 0 {
		sb.WriteString("    <h3>Identified Topics</h3>\n    <div>\n")
		for _, topic := range analysis.Topics {
			sb.WriteString(fmt.Sprintf("        <span class='topic-tag'>%s</span>\n", html.EscapeString(topic)))
		}
		sb.WriteString("    </div>\n")
	}
}

// writeInfoRow writes one label/value pair into an info grid.
// The value is escaped here so callers can pass raw content.
func writeInfoRow(sb *strings.Builder, label, value string) {
	sb.WriteString(fmt.Sprintf("        <div class='info-label'>%s</div><div>%s</div>\n",
		html.EscapeString(label), html.EscapeString(value)))
}
