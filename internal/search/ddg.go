package search

import (
	"context"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/pkg/duckduckgo"
)

type duckDuckGoProvider struct {
	client   duckduckgo.Client
	throttle *throttle
}

func newDuckDuckGo(opts Options) *duckDuckGoProvider {
	return &duckDuckGoProvider{
		client: duckduckgo.NewClient(
			duckduckgo.WithHTTPClient(opts.HTTPClient),
			duckduckgo.WithUserAgent(opts.UserAgent),
		),
		throttle: newThrottle(ProviderDuckDuckGo, opts),
	}
}

func (p *duckDuckGoProvider) ID() ProviderID { return ProviderDuckDuckGo }

func (p *duckDuckGoProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	return p.throttle.do(ctx, func(ctx context.Context) ([]model.SearchResult, error) {
		hits, err := p.client.Search(ctx, query, maxResults)
		if err != nil {
			return nil, err
		}
		out := make([]model.SearchResult, 0, len(hits))
		for _, h := range hits {
			out = append(out, model.SearchResult{
				Title:   cleanText(h.Title),
				Snippet: cleanText(h.Snippet),
				URL:     h.URL,
			})
		}
		return out, nil
	})
}
