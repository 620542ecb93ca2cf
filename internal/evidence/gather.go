// Package evidence assembles the per-company, per-mode evidence the prompt is
// built from.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/search"
)

// DefaultTopicHint is appended to the company name for internet queries.
const DefaultTopicHint = "operational risk"

// ErrNoEvidence means the selected mode has nothing to assess for this
// company. It fails the pair, never the run.
var ErrNoEvidence = eris.New("evidence: no evidence for mode")

// Searcher runs one aggregated web query.
type Searcher interface {
	Search(ctx context.Context, query string) (search.Outcome, error)
}

// Enricher attaches fetched page text to search results.
type Enricher interface {
	Enrich(ctx context.Context, company string, results []model.SearchResult) []model.SearchResult
}

// Gatherer builds evidence bundles. The searcher is only needed for internet
// mode and the enricher is optional.
type Gatherer struct {
	searcher  Searcher
	enricher  Enricher
	topicHint string
}

// NewGatherer returns a Gatherer. An empty topicHint selects
// DefaultTopicHint.
func NewGatherer(searcher Searcher, enricher Enricher, topicHint string) *Gatherer {
	if strings.TrimSpace(topicHint) == "" {
		topicHint = DefaultTopicHint
	}
	return &Gatherer{searcher: searcher, enricher: enricher, topicHint: strings.TrimSpace(topicHint)}
}

// Query returns the web query used for company.
func (g *Gatherer) Query(company string) string {
	return strings.TrimSpace(company + " " + g.topicHint)
}

// Gather collects evidence for one company in one mode.
func (g *Gatherer) Gather(ctx context.Context, company model.Company, roles model.ColumnRoleMap, mode model.Mode) (model.EvidenceBundle, error) {
	bundle := model.EvidenceBundle{
		Company:       company.Name,
		Mode:          mode,
		CurrentRating: roles.CurrentRating(company.Row),
	}

	switch mode {
	case model.ModeQuestionnaire:
		for _, col := range roles.Questionnaire {
			if v := company.Row.Get(col); v != "" {
				bundle.Snippets = append(bundle.Snippets, fmt.Sprintf("%s: %s", col, v))
			}
		}
		if len(bundle.Snippets) == 0 {
			return bundle, eris.Wrapf(ErrNoEvidence, "evidence: %s has no questionnaire answers", company.Name)
		}
		return bundle, nil

	case model.ModeComments:
		comment := ""
		if roles.Comments != "" {
			comment = company.Row.Get(roles.Comments)
		}
		if comment == "" {
			return bundle, eris.Wrapf(ErrNoEvidence, "evidence: %s has no comments", company.Name)
		}
		bundle.Snippets = []string{comment}
		return bundle, nil

	case model.ModeInternetSearch:
		return g.gatherWeb(ctx, company, roles, bundle)

	default:
		return bundle, eris.Errorf("evidence: unsupported mode %q", mode)
	}
}

func (g *Gatherer) gatherWeb(ctx context.Context, company model.Company, roles model.ColumnRoleMap, bundle model.EvidenceBundle) (model.EvidenceBundle, error) {
	if roles.Comments != "" {
		bundle.Context = company.Row.Get(roles.Comments)
	}
	if g.searcher == nil {
		bundle.Degraded = true
		bundle.Notes = append(bundle.Notes, "no search providers configured")
		return bundle, nil
	}

	out, err := g.searcher.Search(ctx, g.Query(company.Name))
	for _, pe := range out.Errors {
		bundle.Notes = append(bundle.Notes, pe.Error())
	}
	switch {
	case errors.Is(err, search.ErrAllProvidersFailed):
		bundle.Degraded = true
		bundle.Notes = append(bundle.Notes, "all search providers failed")
		return bundle, nil
	case err != nil:
		return bundle, eris.Wrap(err, "evidence: search")
	}

	bundle.Results = out.Results
	if len(out.Errors) > 0 {
		bundle.Degraded = true
	}
	if len(bundle.Results) == 0 {
		bundle.Degraded = true
		bundle.Notes = append(bundle.Notes, "search returned no results")
		return bundle, nil
	}

	if g.enricher != nil {
		bundle.Results = g.enricher.Enrich(ctx, company.Name, bundle.Results)
	}
	zap.L().Debug("evidence: web evidence gathered",
		zap.String("company", company.Name),
		zap.Int("results", len(bundle.Results)),
		zap.Int("provider_errors", len(out.Errors)),
	)
	return bundle, nil
}
