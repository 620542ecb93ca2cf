// Package scrape fetches result pages for internet-mode evidence and pulls
// out the paragraphs that talk about risk.
package scrape

import (
	"context"
)

// Page is a fetched page reduced to text blocks.
type Page struct {
	URL        string
	Title      string
	Blocks     []string
	Links      []Link
	StatusCode int
}

// Link is an anchor found on a page, resolved against the page URL.
type Link struct {
	Href string
	Text string
}

// Result holds a scraped page with its source.
type Result struct {
	Page   Page
	Source string // e.g. "local_http", "jina"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
