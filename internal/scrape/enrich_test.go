package scrape

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-cli/internal/model"
)

func TestOfficialSite(t *testing.T) {
	results := []model.SearchResult{
		{URL: "https://en.wikipedia.org/wiki/Acme_Corporation"},
		{URL: "https://www.linkedin.com/company/acme"},
		{URL: "https://news.example.com/acme-fined"},
		{URL: "https://investors.acme-corp.co.uk/reports"},
	}

	assert.Equal(t, 3, OfficialSite(results, "Acme Corp", DefaultBlockedDomains))
	assert.Equal(t, 3, OfficialSite(results, "The ACME Group", DefaultBlockedDomains))
	assert.Equal(t, -1, OfficialSite(results, "Globex", DefaultBlockedDomains))
	assert.Equal(t, -1, OfficialSite(results, "", DefaultBlockedDomains))
}

func TestRiskExcerpt(t *testing.T) {
	page := Page{Blocks: []string{
		"Acme makes anvils for coyotes.",
		"Acme was fined after a safety incident at its Ohio plant.",
		"Our audit committee meets quarterly.",
	}}

	assert.Equal(t,
		"Acme was fined after a safety incident at its Ohio plant.\nOur audit committee meets quarterly.",
		RiskExcerpt(page, 500))
	assert.Equal(t, "Acme was fined", RiskExcerpt(page, 14))

	plain := Page{Blocks: []string{"Acme makes anvils for coyotes.", "Founded in 1949."}}
	assert.Equal(t, "Acme makes anvils for coyotes.\nFounded in 1949.", RiskExcerpt(plain, 500))
	assert.Equal(t, "", RiskExcerpt(Page{}, 500))
}

func TestRiskLinks(t *testing.T) {
	page := &Page{
		URL: "https://www.acme.com/",
		Links: []Link{
			{Href: "https://www.acme.com/about", Text: "About us"},
			{Href: "https://www.acme.com/compliance", Text: ""},
			{Href: "https://ir.acme.com/governance", Text: "Corporate Governance"},
			{Href: "https://other.com/risk", Text: "Risk"},
			{Href: "https://www.acme.com/compliance/", Text: "Compliance again"},
			{Href: "https://www.acme.com/security", Text: "Security"},
		},
	}

	links := RiskLinks(page, nil, 2)
	assert.Equal(t, []Link{
		{Href: "https://www.acme.com/compliance", Text: "Risk and compliance page"},
		{Href: "https://ir.acme.com/governance", Text: "Corporate Governance"},
	}, links)

	existing := []model.SearchResult{{URL: "http://acme.com/compliance"}}
	links = RiskLinks(page, existing, 5)
	require.Len(t, links, 2)
	assert.Equal(t, "https://ir.acme.com/governance", links[0].Href)
	assert.Equal(t, "https://www.acme.com/security", links[1].Href)
}

func TestEnricher_Enrich(t *testing.T) {
	s := &mockScraper{name: "fake", supports: true, pages: map[string]Page{
		"https://acme.com/": {
			URL:    "https://acme.com/",
			Blocks: []string{"Acme maintains ISO 27001 security certification."},
			Links:  []Link{{Href: "https://acme.com/risk", Text: "Risk management"}},
		},
		"https://acme.com/risk": {
			URL:    "https://acme.com/risk",
			Title:  "Risk",
			Blocks: []string{"Operational risk is reviewed by the board audit committee."},
		},
		"https://news.example.com/acme": {
			URL:    "https://news.example.com/acme",
			Blocks: []string{"Regulators fined Acme after a data breach in 2024."},
		},
	}}

	results := []model.SearchResult{
		{Title: "Acme fined", URL: "https://news.example.com/acme", Snippet: "Acme fined", Provider: "ddg"},
		{Title: "Acme on Wikipedia", URL: "https://en.wikipedia.org/wiki/Acme", Provider: "ddg"},
		{Title: "Acme Corp", URL: "https://acme.com/", Snippet: "Home of Acme", Provider: "google"},
		{Title: "Dead link", URL: "https://gone.example.com/x", Snippet: "gone", Provider: "google"},
	}
	original := append([]model.SearchResult(nil), results...)

	e := NewEnricher(NewChain(s), EnrichOptions{})
	out := e.Enrich(context.Background(), "Acme Corp", results)

	assert.Equal(t, original, results)
	require.Len(t, out, 5)

	assert.Equal(t, "https://acme.com/", out[0].URL)
	assert.Equal(t, "Home of Acme\nAcme maintains ISO 27001 security certification.", out[0].Snippet)

	assert.Equal(t, "https://acme.com/risk", out[1].URL)
	assert.Equal(t, "site", out[1].Provider)
	assert.Equal(t, "Risk management", out[1].Title)
	assert.Equal(t, "Operational risk is reviewed by the board audit committee.", out[1].Snippet)

	assert.Equal(t, "Acme fined\nRegulators fined Acme after a data breach in 2024.", out[2].Snippet)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Acme", out[3].URL)
	assert.Equal(t, "", out[3].Snippet)
	assert.Equal(t, "gone", out[4].Snippet)
}

func TestEnricher_RespectsCap(t *testing.T) {
	s := &mockScraper{name: "fake", supports: true, pages: map[string]Page{
		"https://acme.com/": {
			URL:    "https://acme.com/",
			Blocks: []string{"Acme security overview."},
			Links: []Link{
				{Href: "https://acme.com/risk", Text: "Risk management"},
				{Href: "https://acme.com/compliance", Text: "Compliance"},
				{Href: "https://acme.com/security", Text: "Security"},
			},
		},
		"https://acme.com/risk":       {URL: "https://acme.com/risk", Blocks: []string{"Risk is reviewed quarterly."}},
		"https://acme.com/compliance": {URL: "https://acme.com/compliance", Blocks: []string{"SOC 2 compliance report."}},
		"https://acme.com/security":   {URL: "https://acme.com/security", Blocks: []string{"Security incident history."}},
	}}
	results := []model.SearchResult{
		{URL: "https://acme.com/", Snippet: "Home"},
		{URL: "https://news.example.com/a", Snippet: "a"},
		{URL: "https://news.example.com/b", Snippet: "b"},
		{URL: "https://news.example.com/c", Snippet: "c"},
	}

	for _, limit := range []int{1, 3, 4} {
		e := NewEnricher(NewChain(s), EnrichOptions{Cap: limit})
		out := e.Enrich(context.Background(), "Acme", results)

		assert.LessOrEqual(t, len(out), limit)
		require.NotEmpty(t, out)
		assert.Equal(t, "https://acme.com/", out[0].URL)
	}

	out := NewEnricher(NewChain(s), EnrichOptions{Cap: 4}).Enrich(context.Background(), "Acme", results)
	require.Len(t, out, 4)
	assert.Equal(t, "https://acme.com/risk", out[1].URL)
	assert.Equal(t, "https://acme.com/compliance", out[2].URL)
	assert.Equal(t, "https://acme.com/security", out[3].URL)
}

func TestEnricher_NoOfficialSite(t *testing.T) {
	s := &mockScraper{name: "fake", supports: true, pages: map[string]Page{}}
	results := []model.SearchResult{{URL: "https://news.example.com/a", Snippet: "a"}}

	out := NewEnricher(NewChain(s), EnrichOptions{}).Enrich(context.Background(), "Globex", results)

	assert.Equal(t, results, out)
}
