package search

import (
	"context"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/pkg/searxng"
)

type searXNGProvider struct {
	client   searxng.Client
	throttle *throttle
}

func newSearXNG(opts Options) *searXNGProvider {
	return &searXNGProvider{
		client:   searxng.NewClient(opts.SearXNGURL, searxng.WithHTTPClient(opts.HTTPClient)),
		throttle: newThrottle(ProviderSearXNG, opts),
	}
}

func (p *searXNGProvider) ID() ProviderID { return ProviderSearXNG }

func (p *searXNGProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	return p.throttle.do(ctx, func(ctx context.Context) ([]model.SearchResult, error) {
		resp, err := p.client.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		out := make([]model.SearchResult, 0, maxResults)
		for _, r := range resp.Results {
			if len(out) == maxResults {
				break
			}
			out = append(out, model.SearchResult{
				Title:   cleanText(r.Title),
				Snippet: cleanText(r.Content),
				URL:     r.URL,
			})
		}
		return out, nil
	})
}
