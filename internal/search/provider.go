// Package search queries external web search backends and merges their
// results into one bounded, deduplicated evidence set.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/model"
)

// ProviderID names one of the supported search backends.
type ProviderID string

const (
	// ProviderDuckDuckGo is the keyless metasearch backend.
	ProviderDuckDuckGo ProviderID = "ddg"
	// ProviderGoogle scrapes the Google results page.
	ProviderGoogle ProviderID = "google"
	// ProviderSearXNG queries a self-hosted SearXNG instance.
	ProviderSearXNG ProviderID = "searxng"
	// ProviderBrowser drives headless Chromium.
	ProviderBrowser ProviderID = "browser"
)

// AllProviders is the default priority order used by "combined" selection.
var AllProviders = []ProviderID{ProviderDuckDuckGo, ProviderGoogle, ProviderSearXNG, ProviderBrowser}

// ParseProviders resolves provider names in priority order. "combined" and
// "all" expand to AllProviders; duplicates keep their first position.
func ParseProviders(names []string) ([]ProviderID, error) {
	seen := make(map[ProviderID]bool)
	var out []ProviderID
	add := func(id ProviderID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, n := range names {
		switch v := strings.ToLower(strings.TrimSpace(n)); v {
		case "combined", "all":
			for _, id := range AllProviders {
				add(id)
			}
		case "ddg", "ddgs", "duckduckgo":
			add(ProviderDuckDuckGo)
		case "google":
			add(ProviderGoogle)
		case "searxng":
			add(ProviderSearXNG)
		case "browser", "playwright", "chromedp":
			add(ProviderBrowser)
		case "":
		default:
			return nil, eris.Errorf("search: unknown provider %q", n)
		}
	}
	return out, nil
}

// Provider is the single capability every search backend implements.
type Provider interface {
	ID() ProviderID
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

// ProviderError records a failed provider call. It is returned to the
// aggregator, logged, and never propagated as a run failure.
type ProviderError struct {
	Provider ProviderID
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("search provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
