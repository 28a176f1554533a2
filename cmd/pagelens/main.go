// Package main provides the entry point for the pagelens CLI.
//
// Pagelens crawls websites, extracts their content, and ranks pages by
// relevance to an optional requirement keyword.
//
// Usage:
//
//	pagelens scan <url>
//	pagelens scan --crawl --requirement "pricing" <url>
//
// See --help for all available options.
package main

// main is the entry point for pagelens.
func main() {
	Execute()
}
