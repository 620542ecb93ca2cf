package evidence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/search"
)

type fakeSearcher struct {
	outcome search.Outcome
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) (search.Outcome, error) {
	f.queries = append(f.queries, query)
	return f.outcome, f.err
}

type upperEnricher struct{}

func (upperEnricher) Enrich(_ context.Context, _ string, rs []model.SearchResult) []model.SearchResult {
	out := append([]model.SearchResult(nil), rs...)
	for i := range out {
		out[i].Snippet += " [enriched]"
	}
	return out
}

var roles = model.ColumnRoleMap{
	Company:       "Company",
	RiskRating:    "Risk Rating",
	Comments:      "Comments",
	Questionnaire: []string{"Q1", "Q2", "Q3"},
}

func company(row model.Row) model.Company {
	return model.Company{Name: row.Get("Company"), Row: row}
}

func TestGather_Questionnaire(t *testing.T) {
	g := NewGatherer(nil, nil, "")
	c := company(model.Row{"Company": "Acme", "Risk Rating": "Low", "Q1": "Yes", "Q2": " ", "Q3": "No incidents"})

	b, err := g.Gather(context.Background(), c, roles, model.ModeQuestionnaire)

	require.NoError(t, err)
	assert.Equal(t, "Acme", b.Company)
	assert.Equal(t, "Low", b.CurrentRating)
	assert.Equal(t, []string{"Q1: Yes", "Q3: No incidents"}, b.Snippets)
}

func TestGather_QuestionnaireEmpty(t *testing.T) {
	g := NewGatherer(nil, nil, "")
	c := company(model.Row{"Company": "Acme"})

	_, err := g.Gather(context.Background(), c, roles, model.ModeQuestionnaire)

	assert.ErrorIs(t, err, ErrNoEvidence)
}

func TestGather_Comments(t *testing.T) {
	g := NewGatherer(nil, nil, "")

	b, err := g.Gather(context.Background(), company(model.Row{"Company": "Acme", "Comments": "Late filings"}), roles, model.ModeComments)
	require.NoError(t, err)
	assert.Equal(t, []string{"Late filings"}, b.Snippets)

	_, err = g.Gather(context.Background(), company(model.Row{"Company": "Acme"}), roles, model.ModeComments)
	assert.ErrorIs(t, err, ErrNoEvidence)

	noCol := roles
	noCol.Comments = ""
	_, err = g.Gather(context.Background(), company(model.Row{"Company": "Acme", "Comments": "x"}), noCol, model.ModeComments)
	assert.ErrorIs(t, err, ErrNoEvidence)
}

func TestGather_Internet(t *testing.T) {
	s := &fakeSearcher{outcome: search.Outcome{Results: []model.SearchResult{
		{Title: "Acme fined", URL: "https://news.example.com/acme", Snippet: "Fined", Provider: "ddg"},
	}}}
	g := NewGatherer(s, upperEnricher{}, "")
	c := company(model.Row{"Company": "Acme", "Risk Rating": "Medium", "Comments": "Watch list"})

	b, err := g.Gather(context.Background(), c, roles, model.ModeInternetSearch)

	require.NoError(t, err)
	assert.Equal(t, []string{"Acme operational risk"}, s.queries)
	assert.False(t, b.Degraded)
	assert.Equal(t, "Watch list", b.Context)
	require.Len(t, b.Results, 1)
	assert.Equal(t, "Fined [enriched]", b.Results[0].Snippet)
}

func TestGather_InternetTopicHint(t *testing.T) {
	s := &fakeSearcher{}
	g := NewGatherer(s, nil, "  cyber security ")

	_, err := g.Gather(context.Background(), company(model.Row{"Company": "Acme"}), roles, model.ModeInternetSearch)

	require.NoError(t, err)
	assert.Equal(t, []string{"Acme cyber security"}, s.queries)
}

func TestGather_InternetAllProvidersFailed(t *testing.T) {
	s := &fakeSearcher{
		outcome: search.Outcome{Errors: []*search.ProviderError{
			{Provider: search.ProviderDuckDuckGo, Err: errors.New("timeout")},
		}},
		err: search.ErrAllProvidersFailed,
	}
	g := NewGatherer(s, nil, "")

	b, err := g.Gather(context.Background(), company(model.Row{"Company": "Acme"}), roles, model.ModeInternetSearch)

	require.NoError(t, err)
	assert.True(t, b.Degraded)
	assert.Empty(t, b.Results)
	assert.Len(t, b.Notes, 2)
}

func TestGather_InternetPartialAndEmpty(t *testing.T) {
	partial := &fakeSearcher{outcome: search.Outcome{
		Results: []model.SearchResult{{URL: "https://a.com"}},
		Errors:  []*search.ProviderError{{Provider: search.ProviderGoogle, Err: errors.New("429")}},
	}}
	b, err := NewGatherer(partial, nil, "").Gather(context.Background(), company(model.Row{"Company": "Acme"}), roles, model.ModeInternetSearch)
	require.NoError(t, err)
	assert.True(t, b.Degraded)
	assert.Len(t, b.Results, 1)

	empty := &fakeSearcher{}
	b, err = NewGatherer(empty, nil, "").Gather(context.Background(), company(model.Row{"Company": "Acme"}), roles, model.ModeInternetSearch)
	require.NoError(t, err)
	assert.True(t, b.Degraded)
	assert.Contains(t, b.Notes, "search returned no results")
}

func TestGather_InternetCancelled(t *testing.T) {
	s := &fakeSearcher{err: context.Canceled}

	_, err := NewGatherer(s, nil, "").Gather(context.Background(), company(model.Row{"Company": "Acme"}), roles, model.ModeInternetSearch)

	assert.ErrorIs(t, err, context.Canceled)
}
