package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pagelens/pagelens/internal/model"
)

// sampleReport builds a small two-page report for writer tests.
func sampleReport() *model.CrawlReport {
	report := model.NewCrawlReport("https://example.com", "pricing")
	report.DateScanned = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	report.TotalPagesCrawled = 5

	report.AddResult(
		&model.Page{
			URL:        "https://example.com/pricing",
			Title:      "Pricing <Plans>",
			Headings:   []string{"H1: Pricing"},
			Paragraphs: []string{"Our pricing starts at ten dollars per month."},
			Links:      []model.Link{{URL: "https://example.com/signup", Text: "Sign up"}},
			Metadata:   map[string]string{"description": "Plans & pricing"},
		},
		&model.Analysis{
			URL:             "https://example.com/pricing",
			Summary:         "Page Title: Pricing <Plans>",
			KeyPoints:       []string{"H1: Pricing"},
			Topics:          []string{"Pricing"},
			WordCount:       8,
			ContentType:     model.ContentTypeEcommerce,
			ImportanceScore: 0.55,
			RelevanceScore:  0.85,
		},
	)
	report.AddResult(
		&model.Page{
			URL:   "https://example.com/",
			Title: "Home",
		},
		&model.Analysis{
			URL:             "https://example.com/",
			Summary:         model.NoSummary,
			ContentType:     model.ContentTypeGeneral,
			ImportanceScore: 0.2,
			RelevanceScore:  0.1,
		},
	)
	return report
}

// TestTextWriter tests the plain text renderer.
func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewTextWriter(&buf)

		n, err := w.Write(sampleReport())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		out := buf.String()
		for _, want := range []string{
			"PAGELENS REPORT",
			"Base URL:       https://example.com",
			`Requirement:    "pricing"`,
			"Pages Crawled:  5",
			"Matching Pages: 2",
			"Status:         Complete",
			"PAGE 1: Pricing <Plans>",
			"Relevance:     0.85/1.00",
			"IDENTIFIED TOPICS",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("empty report notes no matches", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewTextWriter(&buf)

		if _, err := w.Write(model.NewCrawlReport("https://example.com", "")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "No matching pages found.") {
			t.Error("expected no-matches notice")
		}
	})

	t.Run("timed out report shows partial status", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("https://example.com", "")
		report.TimedOut = true

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(report); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "TIMED OUT (partial results)") {
			t.Error("expected timed out status")
		}
	})

	t.Run("error report shows error status", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("https://example.com", "")
		report.Error = "no content found"

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(report); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "ERROR - no content found") {
			t.Error("expected error status")
		}
	})

	t.Run("verbose adds links and metadata", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewTextWriter(&buf, WithVerbose(true))

		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "SAMPLE LINKS (Top 5)") {
			t.Error("expected sample links section")
		}
		if !strings.Contains(out, "METADATA") {
			t.Error("expected metadata section")
		}
	})
}

// TestMarkdownWriter tests the Markdown renderer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"# Pagelens Report",
			"`https://example.com`",
			"`pricing`",
			"## 1. Pricing <Plans>",
			"### Summary",
			"### Page Structure",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("untitled page falls back to URL", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("https://example.com", "")
		report.AddResult(
			&model.Page{URL: "https://example.com/x"},
			&model.Analysis{Summary: model.NoSummary},
		)

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "## 1. https://example.com/x") {
			t.Error("expected URL as page heading")
		}
	})

	t.Run("empty report notes no matches", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewCrawlReport("https://example.com", "")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "No matching pages found.") {
			t.Error("expected no-matches notice")
		}
	})
}

// TestHTMLWriter tests the HTML renderer.
func TestHTMLWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes a complete document", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewHTMLWriter(&buf)

		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"<!DOCTYPE html>",
			"<title>Pagelens Report</title>",
			"<h1>Pagelens Report</h1>",
			"</html>",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("escapes page content", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("https://example.com", "")
		report.AddResult(
			&model.Page{
				URL:   "https://example.com/x",
				Title: `<script>alert("xss")</script>`,
			},
			&model.Analysis{Summary: "safe & sound"},
		)

		var buf bytes.Buffer
		if _, err := NewHTMLWriter(&buf).Write(report); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		out := buf.String()
		if strings.Contains(out, `<script>alert("xss")</script>`) {
			t.Error("expected title to be escaped")
		}
		if !strings.Contains(out, "&lt;script&gt;") {
			t.Error("expected escaped script tag")
		}
		if !strings.Contains(out, "safe &amp; sound") {
			t.Error("expected escaped summary")
		}
	})

	t.Run("timed out report shows notice", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("https://example.com", "")
		report.TimedOut = true

		var buf bytes.Buffer
		if _, err := NewHTMLWriter(&buf).Write(report); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "interrupted") {
			t.Error("expected interruption notice")
		}
	})
}

// TestJSONWriter tests the JSON renderers.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output round-trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		var got model.CrawlReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("failed to unmarshal output: %v", err)
		}
		if got.BaseURL != "https://example.com" {
			t.Errorf("expected base URL, got %q", got.BaseURL)
		}
		if len(got.MatchingPages) != 2 {
			t.Errorf("expected 2 matching pages, got %d", len(got.MatchingPages))
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewFullJSONWriter(&buf, "1.2.3")

		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		var wrapper JSONReport
		if err := json.Unmarshal(buf.Bytes(), &wrapper); err != nil {
			t.Fatalf("failed to unmarshal output: %v", err)
		}
		if wrapper.Version != "1.2.3" {
			t.Errorf("expected version '1.2.3', got %q", wrapper.Version)
		}
		if wrapper.Report == nil || wrapper.Report.BaseURL != "https://example.com" {
			t.Error("expected wrapped report")
		}
	})
}

// failWriter always returns an error.
type failWriter struct{}

func (failWriter) Write(*model.CrawlReport) (int, error) {
	return 0, errors.New("write failed")
}

// TestMultiWriter tests fan-out writing.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to every destination", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewTextWriter(&a), NewMarkdownWriter(&b))

		if _, err := mw.Write(sampleReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected both destinations to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := NewMultiWriter(failWriter{}, NewTextWriter(&buf))

		if _, err := mw.Write(sampleReport()); err == nil {
			t.Error("expected error from failing writer")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped after an error")
		}
	})
}

// TestTruncateString tests the shared truncation helper.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "short string unchanged", input: "hello", maxLen: 10, want: "hello"},
		{name: "exact length unchanged", input: "hello", maxLen: 5, want: "hello"},
		{name: "truncated with ellipsis", input: "hello world", maxLen: 8, want: "hello..."},
		{name: "tiny max hard-cuts", input: "hello", maxLen: 2, want: "he"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
