package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockScraper implements Scraper for testing.
type mockScraper struct {
	name     string
	supports bool
	result   *Result
	err      error
	pages    map[string]Page
}

func (m *mockScraper) Name() string           { return m.name }
func (m *mockScraper) Supports(_ string) bool { return m.supports }

func (m *mockScraper) Scrape(_ context.Context, u string) (*Result, error) {
	if m.pages != nil {
		p, ok := m.pages[u]
		if !ok {
			return nil, errors.New("not found")
		}
		return &Result{Page: p, Source: m.name}, nil
	}
	return m.result, m.err
}

func TestChain_Scrape_FirstSuccess(t *testing.T) {
	s1 := &mockScraper{
		name: "primary", supports: true,
		result: &Result{Page: Page{URL: "https://acme.com", Title: "Home"}, Source: "primary"},
	}
	s2 := &mockScraper{name: "fallback", supports: true}

	result, err := NewChain(s1, s2).Scrape(context.Background(), "https://acme.com")

	require.NoError(t, err)
	assert.Equal(t, "primary", result.Source)
	assert.Equal(t, "https://acme.com", result.Page.URL)
}

func TestChain_Scrape_FallbackOnError(t *testing.T) {
	s1 := &mockScraper{name: "primary", supports: true, err: errors.New("failed")}
	s2 := &mockScraper{
		name: "fallback", supports: true,
		result: &Result{Page: Page{URL: "https://acme.com"}, Source: "fallback"},
	}

	result, err := NewChain(s1, s2).Scrape(context.Background(), "https://acme.com")

	require.NoError(t, err)
	assert.Equal(t, "fallback", result.Source)
}

func TestChain_Scrape_AllFail(t *testing.T) {
	s1 := &mockScraper{name: "s1", supports: true, err: errors.New("s1 error")}
	s2 := &mockScraper{name: "s2", supports: true, err: errors.New("s2 error")}

	result, err := NewChain(s1, s2).Scrape(context.Background(), "https://acme.com")

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "all scrapers failed")
}

func TestChain_Scrape_NoneSupported(t *testing.T) {
	s1 := &mockScraper{name: "s1", supports: false}

	_, err := NewChain(s1).Scrape(context.Background(), "https://acme.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable scraper")
}

func TestChain_ScrapeAll_AlignedWithInput(t *testing.T) {
	s1 := &mockScraper{name: "s1", supports: true, pages: map[string]Page{
		"https://acme.com/about":    {URL: "https://acme.com/about"},
		"https://acme.com/services": {URL: "https://acme.com/services"},
	}}

	urls := []string{"https://acme.com/about", "https://acme.com/missing", "https://acme.com/services"}
	pages := NewChain(s1).ScrapeAll(context.Background(), urls, 2)

	require.Len(t, pages, 3)
	assert.Equal(t, "https://acme.com/about", pages[0].URL)
	assert.Nil(t, pages[1])
	assert.Equal(t, "https://acme.com/services", pages[2].URL)
}
