package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pagelens/pagelens/internal/model"
)

const (
	// maxKeyPoints is the cap on key points per page.
	maxKeyPoints = 10

	// maxTotalKeyPoints caps key points after requirement-focused
	// points are prepended.
	maxTotalKeyPoints = 15

	// maxTopics is the cap on identified topics.
	maxTopics = 10

	// maxSummaryParagraphs is how many content paragraphs feed the summary.
	maxSummaryParagraphs = 3

	// summaryTruncateAt is the character limit per summary paragraph.
	summaryTruncateAt = 200
)

var (
	// wordPattern matches candidate topic words: four or more letters.
	wordPattern = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)

	// sentenceSplit separates sentences on terminal punctuation.
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
)

// stopWords are common words excluded from topic identification.
var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"been": true, "were": true, "will": true, "would": true, "could": true,
	"should": true, "their": true, "about": true, "which": true, "there": true,
	"these": true, "those": true, "than": true, "then": true, "them": true,
	"they": true, "what": true, "when": true, "where": true, "more": true,
	"some": true, "such": true, "into": true, "through": true, "also": true,
	"very": true, "other": true, "many": true, "most": true, "just": true,
	"only": true, "over": true, "make": true, "made": true, "year": true,
	"years": true, "page": true, "site": true, "website": true, "home": true,
}

// Analyzer scores extracted pages. The zero value is not usable; create
// one with NewAnalyzer.
type Analyzer struct {
	// minTopicFrequency is the minimum occurrence count for a word to
	// qualify as a topic.
	minTopicFrequency int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMinTopicFrequency sets the minimum number of occurrences a word
// needs before it counts as a topic.
func WithMinTopicFrequency(n int) Option {
	return func(a *Analyzer) {
		a.minTopicFrequency = n
	}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		minTopicFrequency: 3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores a page. The requirement may be empty, in which case no
// relevance score is computed and key points are purely structural.
func (a *Analyzer) Analyze(page *model.Page, requirement string) *model.Analysis {
	return &model.Analysis{
		URL:             page.URL,
		Summary:         summarize(page),
		KeyPoints:       keyPoints(page, requirement),
		Topics:          a.topics(page),
		WordCount:       wordCount(page),
		ContentType:     contentType(page),
		ImportanceScore: importanceScore(page),
		RelevanceScore:  relevanceScore(page, requirement),
	}
}

// summarize builds a short textual summary: the title, the meta
// description, and a preview of up to three substantial paragraphs.
func summarize(page *model.Page) string {
	var parts []string

	if page.Title != "" {
		parts = append(parts, "Page Title: "+page.Title)
	}

	if desc := page.Description(); desc != "" {
		parts = append(parts, "Description: "+desc)
	}

	var preview []string
	for _, para := range page.Paragraphs {
		if len(strings.Fields(para)) > 10 {
			preview = append(preview, truncate(para, summaryTruncateAt))
			if len(preview) == maxSummaryParagraphs {
				break
			}
		}
	}
	if len(preview) > 0 {
		parts = append(parts, "Content Preview:")
		for _, para := range preview {
			parts = append(parts, "- "+para)
		}
	}

	if len(parts) == 0 {
		return model.NoSummary
	}
	return strings.Join(parts, "\n")
}

// keyPoints extracts up to 15 key points. Requirement-focused points
// come first, then top-level headings, then leading sentences when the
// page has little structure. Exact duplicates are dropped.
func keyPoints(page *model.Page, requirement string) []string {
	var points []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			points = append(points, p)
		}
	}

	if requirement != "" {
		lower := strings.ToLower(requirement)

		matched := 0
		for _, h := range page.Headings {
			if strings.Contains(strings.ToLower(h), lower) {
				add(h)
				if matched++; matched == 5 {
					break
				}
			}
		}

		matched = 0
		for _, para := range page.Paragraphs {
			if !strings.Contains(strings.ToLower(para), lower) {
				continue
			}
			for _, sentence := range sentenceSplit.Split(para, -1) {
				sentence = strings.TrimSpace(sentence)
				if sentence != "" && strings.Contains(strings.ToLower(sentence), lower) {
					add("• " + sentence)
					break
				}
			}
			if matched++; matched == 3 {
				break
			}
		}
	}

	headings := 0
	for _, h := range page.Headings {
		if strings.HasPrefix(h, "H1:") || strings.HasPrefix(h, "H2:") || strings.HasPrefix(h, "H3:") {
			add(h)
			if headings++; headings == maxKeyPoints {
				break
			}
		}
	}

	// Thin pages get leading sentences from their first paragraphs.
	if len(points) < 5 {
		for i, para := range page.Paragraphs {
			if i == 5 {
				break
			}
			sentences := sentenceSplit.Split(para, -1)
			if len(sentences) == 0 {
				continue
			}
			first := strings.TrimSpace(sentences[0])
			if len(strings.Fields(first)) > 5 {
				add("• " + first)
			}
		}
	}

	if len(points) > maxTotalKeyPoints {
		points = points[:maxTotalKeyPoints]
	}
	return points
}

// topics identifies the dominant words of the page: at least four
// letters, not a stop word, appearing at least minTopicFrequency times.
// The ten most frequent qualify, ties broken by first encounter, each
// title-cased for display.
func (a *Analyzer) topics(page *model.Page) []string {
	allText := strings.ToLower(strings.Join(
		append(append([]string{page.Title}, page.Headings...), page.Paragraphs...), " "))

	freq := make(map[string]int)
	var order []string
	for _, word := range wordPattern.FindAllString(allText, -1) {
		if stopWords[word] {
			continue
		}
		if freq[word] == 0 {
			order = append(order, word)
		}
		freq[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	caser := cases.Title(language.English)
	var topics []string
	for _, word := range order {
		if freq[word] < a.minTopicFrequency {
			continue
		}
		topics = append(topics, caser.String(word))
		if len(topics) == maxTopics {
			break
		}
	}
	return topics
}

// wordCount counts whitespace-delimited tokens across all paragraphs.
// Title and headings are excluded so the count reflects body text.
func wordCount(page *model.Page) int {
	count := 0
	for _, para := range page.Paragraphs {
		count += len(strings.Fields(para))
	}
	return count
}

// contentType classifies the page with ordered keyword heuristics.
// The first matching rule wins.
func contentType(page *model.Page) model.ContentType {
	title := strings.ToLower(page.Title)

	sample := page.Paragraphs
	if len(sample) > 5 {
		sample = sample[:5]
	}
	body := strings.ToLower(strings.Join(append(append([]string{}, page.Headings...), sample...), " "))

	switch {
	case containsAny(title, "blog", "article", "post"):
		return model.ContentTypeBlogArticle
	case containsAny(body, "product", "price", "buy", "shop", "cart"):
		return model.ContentTypeEcommerce
	case containsAny(body, "university", "college", "student", "academic", "education"):
		return model.ContentTypeEducational
	case containsAny(body, "news", "report", "breaking"):
		return model.ContentTypeNews
	case containsAny(body, "about us", "company", "mission", "team"):
		return model.ContentTypeCorporate
	default:
		return model.ContentTypeGeneral
	}
}

// importanceScore rates how substantial a page is, independent of any
// requirement. Each structural signal adds a fixed weight; the sum is
// capped at 1.0.
func importanceScore(page *model.Page) float64 {
	score := 0.0

	if page.Title != "" {
		score += 0.2
	}

	switch {
	case len(page.Paragraphs) > 5:
		score += 0.2
	case len(page.Paragraphs) > 0:
		score += 0.1
	}

	switch {
	case len(page.Headings) > 5:
		score += 0.2
	case len(page.Headings) > 0:
		score += 0.1
	}

	if len(page.Metadata) > 0 {
		score += 0.1
	}

	switch {
	case len(page.Images) > 5:
		score += 0.1
	case len(page.Images) > 0:
		score += 0.05
	}

	switch {
	case len(page.Links) > 10:
		score += 0.1
	case len(page.Links) > 0:
		score += 0.05
	}

	switch words := wordCount(page); {
	case words > 1000:
		score += 0.15
	case words > 300:
		score += 0.1
	case words > 0:
		score += 0.05
	}

	return min(score, 1.0)
}

// relevanceScore rates how strongly a page matches the requirement.
// Title matches weigh most, headings next, paragraphs least. Counting
// is case-insensitive non-overlapping substring counting, so partial
// word matches contribute ("cat" matches inside "category").
func relevanceScore(page *model.Page, requirement string) float64 {
	if requirement == "" {
		return 0
	}
	lower := strings.ToLower(requirement)

	score := min(float64(countOccurrences(page.Title, lower))*0.4, 0.4)

	headingHits := 0
	for _, h := range page.Headings {
		headingHits += countOccurrences(h, lower)
	}
	score += min(float64(headingHits)*0.15, 0.3)

	paragraphHits := 0
	for _, para := range page.Paragraphs {
		paragraphHits += countOccurrences(para, lower)
	}
	score += min(float64(paragraphHits)*0.05, 0.3)

	return min(score, 1.0)
}

// countOccurrences counts non-overlapping occurrences of needle (already
// lowercased) in haystack, case-insensitively.
func countOccurrences(haystack, needle string) int {
	return strings.Count(strings.ToLower(haystack), needle)
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// truncate shortens s to at most n runes, appending an ellipsis marker
// when truncation happened.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:n]))
}
