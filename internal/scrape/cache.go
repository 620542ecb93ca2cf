package scrape

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// PageCache stores serialized pages by URL.
type PageCache interface {
	GetCachedPage(ctx context.Context, url string) ([]byte, error)
	SetCachedPage(ctx context.Context, url string, content []byte, ttl time.Duration) error
}

// CachedScraper serves pages from a cache and fills it from the wrapped
// scraper. Cache errors are logged and never fail a scrape.
type CachedScraper struct {
	next  Scraper
	cache PageCache
	ttl   time.Duration
}

// NewCachedScraper wraps next. A non-positive ttl selects 24 hours.
func NewCachedScraper(next Scraper, cache PageCache, ttl time.Duration) *CachedScraper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedScraper{next: next, cache: cache, ttl: ttl}
}

// Name implements Scraper.
func (c *CachedScraper) Name() string { return "cached_" + c.next.Name() }

// Supports implements Scraper.
func (c *CachedScraper) Supports(url string) bool { return c.next.Supports(url) }

// Scrape implements Scraper.
func (c *CachedScraper) Scrape(ctx context.Context, url string) (*Result, error) {
	if data, err := c.cache.GetCachedPage(ctx, url); err != nil {
		zap.L().Debug("scrape: cache read failed", zap.String("url", url), zap.Error(err))
	} else if data != nil {
		var page Page
		if err := json.Unmarshal(data, &page); err == nil {
			return &Result{Page: page, Source: "cache"}, nil
		}
	}

	result, err := c.next.Scrape(ctx, url)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result.Page); err == nil {
		if err := c.cache.SetCachedPage(ctx, url, data, c.ttl); err != nil {
			zap.L().Debug("scrape: cache write failed", zap.String("url", url), zap.Error(err))
		}
	}
	return result, nil
}
