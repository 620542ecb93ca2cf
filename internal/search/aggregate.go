package search

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/risk-cli/internal/model"
)

// ErrAllProvidersFailed is returned when no selected provider produced a
// usable response. Callers treat it as recoverable.
var ErrAllProvidersFailed = eris.New("search: all providers failed")

// Outcome is the merged result of one aggregated query.
type Outcome struct {
	Results []model.SearchResult
	Errors  []*ProviderError
}

// Aggregator fans a query out to providers and merges their answers.
type Aggregator struct {
	providers  []Provider
	maxResults int
	cap        int
}

// NewAggregator returns an aggregator over providers in priority order.
// maxResults bounds each provider; limit bounds the merged set. A limit of
// zero means twice maxResults.
func NewAggregator(providers []Provider, maxResults, limit int) *Aggregator {
	if maxResults <= 0 {
		maxResults = 5
	}
	if limit <= 0 {
		limit = maxResults * 2
	}
	return &Aggregator{providers: providers, maxResults: maxResults, cap: limit}
}

// Providers returns the IDs this aggregator queries, in priority order.
func (a *Aggregator) Providers() []ProviderID {
	ids := make([]ProviderID, len(a.providers))
	for i, p := range a.providers {
		ids[i] = p.ID()
	}
	return ids
}

// Search queries every provider concurrently. One provider failing never
// cancels the others. The merged order depends only on provider priority and
// each provider's own ranking, never on completion timing.
func (a *Aggregator) Search(ctx context.Context, query string) (Outcome, error) {
	if len(a.providers) == 0 {
		return Outcome{}, eris.Wrap(ErrAllProvidersFailed, "search: no providers configured")
	}

	buffers := make([][]model.SearchResult, len(a.providers))
	errs := make([]*ProviderError, len(a.providers))

	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			res, err := a.query(ctx, p, query)
			if err != nil {
				errs[i] = &ProviderError{Provider: p.ID(), Err: err}
				return nil
			}
			buffers[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Outcome{}, eris.Wrap(err, "search: aggregate")
	}

	var out Outcome
	for _, pe := range errs {
		if pe == nil {
			continue
		}
		zap.L().Warn("search: provider failed",
			zap.String("provider", string(pe.Provider)),
			zap.String("query", query),
			zap.Error(pe.Err),
		)
		out.Errors = append(out.Errors, pe)
	}
	out.Results = Merge(buffers, a.cap)

	if len(out.Errors) == len(a.providers) {
		return out, ErrAllProvidersFailed
	}
	return out, nil
}

func (a *Aggregator) query(ctx context.Context, p Provider, query string) (res []model.SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.New(fmt.Sprintf("search: provider panic: %v", r))
		}
	}()

	res, err = p.Search(ctx, query, a.maxResults)
	if err != nil {
		return nil, err
	}
	if len(res) > a.maxResults {
		res = res[:a.maxResults]
	}
	out := make([]model.SearchResult, 0, len(res))
	for _, r := range res {
		if r.URL == "" {
			continue
		}
		r.Provider = string(p.ID())
		out = append(out, r)
	}
	return out, nil
}

// Merge concatenates per-provider buffers in priority order, keeps the first
// occurrence of each normalized URL and truncates to limit.
func Merge(buffers [][]model.SearchResult, limit int) []model.SearchResult {
	seen := make(map[string]bool)
	merged := make([]model.SearchResult, 0, limit)
	for _, buf := range buffers {
		for _, r := range buf {
			key := NormalizeURL(r.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
			if len(merged) == limit {
				return merged
			}
		}
	}
	return merged
}
