package search

import (
	"context"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/pkg/google"
)

type googleProvider struct {
	client   google.Client
	throttle *throttle
}

func newGoogle(opts Options) *googleProvider {
	return &googleProvider{
		client: google.NewClient(opts.GoogleAPIKey,
			google.WithSearchEngine(opts.GoogleCX),
			google.WithHTTPClient(opts.HTTPClient),
			google.WithUserAgent(opts.UserAgent),
		),
		throttle: newThrottle(ProviderGoogle, opts),
	}
}

func (p *googleProvider) ID() ProviderID { return ProviderGoogle }

func (p *googleProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	return p.throttle.do(ctx, func(ctx context.Context) ([]model.SearchResult, error) {
		resp, err := p.client.WebSearch(ctx, query, maxResults)
		if err != nil {
			return nil, err
		}
		out := make([]model.SearchResult, 0, len(resp.Items))
		for _, it := range resp.Items {
			out = append(out, model.SearchResult{
				Title:   cleanText(it.Title),
				Snippet: cleanText(it.Snippet),
				URL:     it.Link,
			})
		}
		return out, nil
	})
}
