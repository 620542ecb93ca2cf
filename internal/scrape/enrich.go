package scrape

import (
	"context"
	"net/url"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/search"
)

// DefaultBlockedDomains are aggregators and social sites that are never the
// company's own site and rarely serve scrapable text.
var DefaultBlockedDomains = []string{
	"linkedin.com", "wikipedia.org", "bloomberg.com", "reuters.com",
	"moneycontrol.com", "economictimes.indiatimes.com", "facebook.com",
	"twitter.com", "x.com", "instagram.com", "youtube.com",
}

// RiskKeywords select the paragraphs and site links worth keeping.
var RiskKeywords = []string{
	"risk", "compliance", "security", "governance", "audit", "regulatory",
	"operational", "safety", "control", "vulnerability", "threat",
	"breach", "incident", "lawsuit", "penalty",
}

// EnrichOptions bounds how much fetching one enrichment does.
type EnrichOptions struct {
	// MaxSources is how many non-official results are fetched.
	MaxSources int
	// MaxRiskPages is how many risk-related pages linked from the official
	// site are followed.
	MaxRiskPages int
	// MaxExcerpt caps the characters of page text attached to one result.
	MaxExcerpt int
	// Cap bounds the enriched list, risk pages included. It should match the
	// aggregator cap; zero leaves the list unbounded.
	Cap         int
	Concurrency int
	Blocked     []string
}

func (o EnrichOptions) withDefaults() EnrichOptions {
	if o.MaxSources <= 0 {
		o.MaxSources = 5
	}
	if o.MaxRiskPages <= 0 {
		o.MaxRiskPages = 3
	}
	if o.MaxExcerpt <= 0 {
		o.MaxExcerpt = 1500
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.Blocked == nil {
		o.Blocked = DefaultBlockedDomains
	}
	return o
}

// Enricher fetches search results and attaches risk-relevant page text to
// their snippets.
type Enricher struct {
	chain *Chain
	opts  EnrichOptions
}

// NewEnricher returns an Enricher that fetches pages through chain.
func NewEnricher(chain *Chain, opts EnrichOptions) *Enricher {
	return &Enricher{chain: chain, opts: opts.withDefaults()}
}

// Enrich returns a new result list. The company's official site, when one is
// recognised, moves to the front followed by risk pages it links to; every
// fetched result carries a page excerpt appended to its snippet. Fetch
// failures leave the original result untouched. The input is not modified.
func (e *Enricher) Enrich(ctx context.Context, company string, results []model.SearchResult) []model.SearchResult {
	if len(results) == 0 {
		return results
	}

	ordered := make([]model.SearchResult, 0, len(results))
	official := OfficialSite(results, company, e.opts.Blocked)
	if official >= 0 {
		ordered = append(ordered, results[official])
	}
	for i, r := range results {
		if i != official {
			ordered = append(ordered, r)
		}
	}

	var riskPages []model.SearchResult
	if official >= 0 {
		page, err := e.chain.Scrape(ctx, ordered[0].URL)
		if err != nil {
			zap.L().Debug("scrape: official site unavailable", zap.String("url", ordered[0].URL), zap.Error(err))
		} else {
			ordered[0] = withExcerpt(ordered[0], page.Page, e.opts.MaxExcerpt)
			for _, link := range RiskLinks(&page.Page, ordered, e.riskPageLimit()) {
				riskPages = append(riskPages, model.SearchResult{
					Title:    link.Text,
					URL:      link.Href,
					Provider: "site",
				})
			}
		}
	}

	// Everything else is fetched in one concurrent batch: risk pages first,
	// then the remaining results up to MaxSources.
	start := 0
	if official >= 0 {
		start = 1
	}
	var targets []*model.SearchResult
	for i := range riskPages {
		targets = append(targets, &riskPages[i])
	}
	fetched := 0
	for i := start; i < len(ordered) && fetched < e.opts.MaxSources; i++ {
		if isBlocked(ordered[i].URL, e.opts.Blocked) {
			continue
		}
		targets = append(targets, &ordered[i])
		fetched++
	}

	urls := make([]string, len(targets))
	for i, t := range targets {
		urls[i] = t.URL
	}
	pages := e.chain.ScrapeAll(ctx, urls, e.opts.Concurrency)
	for i, p := range pages {
		if p != nil {
			*targets[i] = withExcerpt(*targets[i], *p, e.opts.MaxExcerpt)
		}
	}

	out := make([]model.SearchResult, 0, len(ordered)+len(riskPages))
	if official >= 0 {
		out = append(out, ordered[0])
	}
	for _, r := range riskPages {
		if r.Snippet != "" {
			out = append(out, r)
		}
	}
	out = append(out, ordered[start:]...)
	if e.opts.Cap > 0 && len(out) > e.opts.Cap {
		out = out[:e.opts.Cap]
	}
	return out
}

// riskPageLimit keeps at least one slot under the cap for the official site.
func (e *Enricher) riskPageLimit() int {
	limit := e.opts.MaxRiskPages
	if e.opts.Cap > 0 && limit > e.opts.Cap-1 {
		limit = e.opts.Cap - 1
	}
	return limit
}

func withExcerpt(r model.SearchResult, page Page, limit int) model.SearchResult {
	excerpt := RiskExcerpt(page, limit)
	if excerpt == "" {
		return r
	}
	if r.Title == "" {
		r.Title = page.Title
	}
	if r.Snippet == "" {
		r.Snippet = excerpt
	} else {
		r.Snippet = r.Snippet + "\n" + excerpt
	}
	return r
}

// RiskExcerpt joins the page blocks that mention a risk keyword, or the
// leading blocks when none do, capped at limit characters.
func RiskExcerpt(page Page, limit int) string {
	var picked []string
	for _, b := range page.Blocks {
		if hasRiskKeyword(b) {
			picked = append(picked, b)
		}
	}
	if len(picked) == 0 {
		picked = page.Blocks
	}

	var sb strings.Builder
	for _, b := range picked {
		if sb.Len() > 0 {
			if sb.Len()+1 >= limit {
				break
			}
			sb.WriteByte('\n')
		}
		if rest := limit - sb.Len(); len(b) > rest {
			sb.WriteString(truncateRunes(b, rest))
			break
		}
		sb.WriteString(b)
	}
	return strings.TrimSpace(sb.String())
}

// RiskLinks returns up to limit links on page that point at the same
// registered domain and mention a risk keyword in their URL or text. Links
// already present in existing are skipped.
func RiskLinks(page *Page, existing []model.SearchResult, limit int) []Link {
	site := registeredDomain(page.URL)
	if site == "" {
		return nil
	}
	seen := make(map[string]bool)
	for _, r := range existing {
		seen[search.NormalizeURL(r.URL)] = true
	}
	seen[search.NormalizeURL(page.URL)] = true

	var out []Link
	for _, l := range page.Links {
		if len(out) == limit {
			break
		}
		if registeredDomain(l.Href) != site {
			continue
		}
		if !hasRiskKeyword(strings.ToLower(l.Href)) && !hasRiskKeyword(l.Text) {
			continue
		}
		key := search.NormalizeURL(l.Href)
		if seen[key] {
			continue
		}
		seen[key] = true
		if l.Text == "" {
			l.Text = "Risk and compliance page"
		}
		out = append(out, l)
	}
	return out
}

// OfficialSite returns the index of the first result whose registered
// domain contains the first significant word of the company name, or -1.
func OfficialSite(results []model.SearchResult, company string, blocked []string) int {
	key := companyKey(company)
	if key == "" {
		return -1
	}
	for i, r := range results {
		if isBlocked(r.URL, blocked) {
			continue
		}
		domain := registeredDomain(r.URL)
		if domain == "" {
			continue
		}
		label := alnum(strings.SplitN(domain, ".", 2)[0])
		if strings.Contains(label, key) {
			return i
		}
	}
	return -1
}

var nameStopwords = map[string]bool{"the": true, "a": true, "an": true}

func companyKey(company string) string {
	for _, w := range strings.Fields(strings.ToLower(company)) {
		if nameStopwords[w] {
			continue
		}
		if k := alnum(w); len(k) >= 2 {
			return k
		}
	}
	return ""
}

func alnum(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

func registeredDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func isBlocked(raw string, blocked []string) bool {
	host := search.Host(raw)
	for _, b := range blocked {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

func hasRiskKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, k := range RiskKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut]
}
