// Package scrape implements the per-URL scraping pipeline: fetch with retry
// and politeness, structured-data parsing, HTML selector fallback, optional
// AI extraction, normalization, and validation.
//
// Sites are described by Source records (configuration plus selector lists)
// rather than per-site types; the shared pipeline takes a Source as a
// parameter, so adding a site means adding a record, not code.
package scrape

import (
	"regexp"
	"time"
)

// FieldSelectors lists CSS selector candidates per recipe field for the HTML
// fallback parser. Sites change markup over time, so each field carries a
// prioritized list and the first matching selector wins.
type FieldSelectors struct {
	Name         []string
	Description  []string
	Ingredients  []string
	Instructions []string
	Image        []string
	Author       []string
	Yield        []string
	Category     []string
}

// Source describes one scrapeable site.
type Source struct {
	// Name identifies the source in storage, progress, and logs.
	Name string
	// BaseURL is the site origin.
	BaseURL string
	// SitemapURL is the root sitemap (possibly an index).
	SitemapURL string
	// URLPattern matches recipe page URLs during discovery.
	URLPattern *regexp.Regexp
	// ExcludePatterns drop listing-style pages during discovery, in
	// addition to the global excludes.
	ExcludePatterns []*regexp.Regexp
	// Selectors drive the HTML fallback parser.
	Selectors FieldSelectors
	// UserAgent overrides the configured crawl user agent for this source.
	// Empty means use the default.
	UserAgent string
	// Delay overrides the request spacing window for this source. Zero means
	// use the default.
	Delay time.Duration
}
