// Package analyzer scores extracted pages.
//
// The Analyzer is a pure function over a model.Page: given a page and an
// optional requirement keyword it produces a model.Analysis with a
// summary, key points, topics, a word count, a content-type label, an
// importance score, and (when a requirement is given) a relevance score.
// No I/O happens here, so analysis can run in parallel with crawling.
package analyzer
