// Package prompt renders evidence bundles into bounded LLM prompts.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/risk-cli/internal/model"
)

// DefaultMaxChars bounds a prompt when Options.MaxChars is unset.
const DefaultMaxChars = 12000

// maxContextChars bounds the internal commentary shown in search prompts.
const maxContextChars = 1500

const questionnairePrompt = `You are an operational risk expert. Analyze the company's questionnaire responses and determine whether the current risk rating is correct.

Company: %s
Current Risk Rating: %s

QUESTIONNAIRE RESPONSES:
%s

Determine:
1. Is the current risk rating (%s) correct based on the questionnaire responses?
2. What should the recommended risk rating be? (Low/Medium/High)
3. Explain your reasoning with bullet points.

Respond ONLY with a JSON object:
{"is_correct": true or false, "recommended_rating": "Low" or "Medium" or "High", "explanation": "bullet-point explanation"}`

const commentsPrompt = `You are an operational risk expert. Analyze the comments about the company and determine whether the current risk rating is correct.

Company: %s
Current Risk Rating: %s

COMMENTS:
%s

Determine:
1. Is the current risk rating (%s) correct based on the comments?
2. What should the recommended risk rating be? (Low/Medium/High)
3. Explain your reasoning with bullet points.

Respond ONLY with a JSON object:
{"is_correct": true or false, "recommended_rating": "Low" or "Medium" or "High", "explanation": "bullet-point explanation"}`

const searchPrompt = `You are an operational risk expert. Use the web search results below to validate the company's current risk rating.

Company: %s
Current Risk Rating: %s

INTERNAL CONTEXT:
%s

WEB SEARCH RESULTS:
%s

Tasks:
1. Extract operational risk information from the results (risk management, compliance, security, governance, incidents, litigation).
2. Decide whether the current rating (%s) is correct.
3. Recommend a rating: Low, Medium or High. Never answer "Unknown"; if evidence is thin, say so and still pick a rating.
4. Cite the result URLs you relied on.

Respond ONLY with a JSON object (no markdown, no code fences):
{"is_correct": true or false, "recommended_rating": "Low" or "Medium" or "High", "explanation": "reasoning that quotes the results", "external_signals": "key risk signals found", "risk_factors": "specific risk factors identified", "sources": ["URLs used"]}`

// Options bounds prompt construction.
type Options struct {
	MaxChars int
}

// Prompt is a rendered prompt plus the URLs whose results it contains. The
// URLs are the only ones a response may cite.
type Prompt struct {
	Text string
	URLs []string
}

// Build renders bundle for its mode. Output depends only on its inputs and
// never exceeds opts.MaxChars characters.
func Build(bundle model.EvidenceBundle, opts Options) Prompt {
	limit := opts.MaxChars
	if limit <= 0 {
		limit = DefaultMaxChars
	}

	rating := bundle.CurrentRating
	if rating == "" {
		rating = "Not provided"
	}

	var p Prompt
	switch bundle.Mode {
	case model.ModeInternetSearch:
		commentary := "None provided"
		if c := strings.TrimSpace(bundle.Context); c != "" {
			commentary = truncate(c, maxContextChars)
		}
		render := func(evidence string) string {
			return fmt.Sprintf(searchPrompt, bundle.Company, rating, commentary, evidence, rating)
		}
		budget := limit - runeLen(render(""))
		var evidence string
		evidence, p.URLs = fitResults(bundle.Results, budget)
		if evidence == "" {
			evidence = "No web results were available."
		}
		p.Text = render(evidence)

	default:
		tmpl := questionnairePrompt
		if bundle.Mode == model.ModeComments {
			tmpl = commentsPrompt
		}
		render := func(evidence string) string {
			return fmt.Sprintf(tmpl, bundle.Company, rating, evidence, rating)
		}
		budget := limit - runeLen(render(""))
		p.Text = render(fitLines(bundle.Snippets, budget))
	}

	p.Text = truncate(p.Text, limit)
	if p.URLs == nil {
		p.URLs = []string{}
	}
	return p
}

// fitLines keeps the newest lines that fit in budget, dropping from the
// front. A single line longer than the budget keeps its beginning.
func fitLines(lines []string, budget int) string {
	if budget <= 0 || len(lines) == 0 {
		return ""
	}
	start := len(lines)
	used := 0
	for i := len(lines) - 1; i >= 0; i-- {
		n := runeLen(lines[i])
		if start < len(lines) {
			n++ // newline separator
		}
		if used+n > budget {
			break
		}
		used += n
		start = i
	}
	if start == len(lines) {
		return truncate(lines[len(lines)-1], budget)
	}
	return strings.Join(lines[start:], "\n")
}

// fitResults picks search results for the budget, preferring those with the
// longest snippets, and renders the picked ones in their original order.
func fitResults(results []model.SearchResult, budget int) (string, []string) {
	if budget <= 0 || len(results) == 0 {
		return "", nil
	}

	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return runeLen(results[order[a]].Snippet) > runeLen(results[order[b]].Snippet)
	})

	keep := make([]bool, len(results))
	used := 0
	for _, i := range order {
		// Entry numbers are assigned after selection, so reserve room for
		// the widest possible label.
		n := runeLen(formatResult(len(results), results[i])) + 2
		if used+n > budget {
			continue
		}
		used += n
		keep[i] = true
	}

	var entries []string
	var urls []string
	for i, r := range results {
		if !keep[i] {
			continue
		}
		entries = append(entries, formatResult(len(entries)+1, r))
		urls = append(urls, r.URL)
	}
	return strings.Join(entries, "\n\n"), urls
}

func formatResult(n int, r model.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] %s\nURL: %s", n, r.Title, r.URL)
	if s := strings.TrimSpace(r.Snippet); s != "" {
		sb.WriteString("\n")
		sb.WriteString(s)
	}
	return sb.String()
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if runeLen(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
