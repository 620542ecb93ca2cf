package scrape

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	readErr error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) GetCachedPage(_ context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.data[url], nil
}

func (m *memCache) SetCachedPage(_ context.Context, url string, content []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[url] = content
	m.ttls[url] = ttl
	return nil
}

type countingScraper struct {
	mockScraper
	calls int
}

func (c *countingScraper) Scrape(ctx context.Context, u string) (*Result, error) {
	c.calls++
	return c.mockScraper.Scrape(ctx, u)
}

func TestCachedScraper_FillsAndServes(t *testing.T) {
	inner := &countingScraper{mockScraper: mockScraper{
		name: "local_http", supports: true,
		pages: map[string]Page{"https://acme.com": {URL: "https://acme.com", Title: "Acme", Blocks: []string{"Risk management overview for Acme."}}},
	}}
	cache := newMemCache()
	s := NewCachedScraper(inner, cache, 0)

	first, err := s.Scrape(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "local_http", first.Source)
	assert.Equal(t, 24*time.Hour, cache.ttls["https://acme.com"])

	second, err := s.Scrape(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "cache", second.Source)
	assert.Equal(t, first.Page, second.Page)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "cached_local_http", s.Name())
	assert.True(t, s.Supports("https://acme.com"))
}

func TestCachedScraper_CacheErrorFallsThrough(t *testing.T) {
	inner := &countingScraper{mockScraper: mockScraper{
		name: "local_http", supports: true,
		result: &Result{Page: Page{URL: "https://acme.com"}, Source: "local_http"},
	}}
	cache := newMemCache()
	cache.readErr = errors.New("disk full")

	result, err := NewCachedScraper(inner, cache, time.Hour).Scrape(context.Background(), "https://acme.com")

	require.NoError(t, err)
	assert.Equal(t, "local_http", result.Source)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedScraper_ScrapeErrorNotCached(t *testing.T) {
	inner := &countingScraper{mockScraper: mockScraper{name: "local_http", supports: true, err: errors.New("boom")}}
	cache := newMemCache()

	_, err := NewCachedScraper(inner, cache, time.Hour).Scrape(context.Background(), "https://acme.com")

	require.Error(t, err)
	assert.Empty(t, cache.data)
}
