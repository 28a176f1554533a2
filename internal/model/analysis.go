package model

// ContentType is a coarse classification of what kind of page was crawled.
// The labels match the values emitted in reports, so they are plain
// display strings rather than identifiers.
type ContentType string

// Content type labels, checked in this order during classification.
// The first matching heuristic wins; ContentTypeGeneral is the fallback.
const (
	ContentTypeBlogArticle ContentType = "Blog/Article"
	ContentTypeEcommerce   ContentType = "E-commerce"
	ContentTypeEducational ContentType = "Educational/Academic"
	ContentTypeNews        ContentType = "News"
	ContentTypeCorporate   ContentType = "Corporate/Organization"
	ContentTypeGeneral     ContentType = "General Website"
)

// String returns the display label of the content type.
func (c ContentType) String() string {
	return string(c)
}

// NoSummary is the sentinel emitted when a page yields nothing worth
// summarizing (no title, no description, no substantial paragraphs).
const NoSummary = "No summary available."

// Analysis is the scored view of a single Page. It is derived once from
// an extracted Page and is immutable afterwards.
type Analysis struct {
	// URL is the URL of the analyzed page.
	URL string `json:"url"`

	// Summary is a short multi-line digest: title, meta description,
	// and up to three content paragraphs. NoSummary if nothing qualified.
	Summary string `json:"summary"`

	// KeyPoints holds up to 15 de-duplicated key points: requirement
	// matches first (when a requirement is set), then top-level headings,
	// then leading paragraph sentences.
	KeyPoints []string `json:"key_points,omitempty"`

	// Topics holds up to 10 frequent content words, title-cased.
	Topics []string `json:"topics,omitempty"`

	// WordCount is the number of whitespace-delimited words across all
	// paragraphs. Headings and the title are not counted.
	WordCount int `json:"word_count"`

	// ContentType is the classified page kind.
	ContentType ContentType `json:"content_type"`

	// ImportanceScore rates the structural richness of the page in [0, 1],
	// independent of any requirement.
	ImportanceScore float64 `json:"importance_score"`

	// RelevanceScore rates how strongly the page matches the crawl
	// requirement, in [0, 1]. It is only meaningful when a requirement
	// was supplied; otherwise it is zero.
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}
