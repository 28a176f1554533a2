// Package model defines the core data structures shared across pagelens:
// extracted pages, content analyses, and the aggregated crawl report.
//
// The model package depends on nothing but the standard library so that
// crawler, analyzer, pipeline, report, and database can all share these
// types without import cycles.
package model
