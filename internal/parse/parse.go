// Package parse extracts a rating, explanation and citations from free-form
// LLM output. It never fails: unusable text yields an Unclear rating with the
// raw text as explanation.
package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/search"
)

// Parsed is the structured reading of one LLM response.
type Parsed struct {
	Rating          model.Rating
	Explanation     string
	Citations       []string
	IsCorrect       *bool
	RiskFactors     string
	ExternalSignals string

	// OK is true when a rating on the scale was found.
	OK bool
}

// payload is the JSON object the prompts ask for. Fields are loosely typed
// because models are inconsistent about strings versus lists.
type payload struct {
	IsCorrect         any    `json:"is_correct"`
	RecommendedRating string `json:"recommended_rating"`
	Rating            string `json:"rating"`
	Explanation       any    `json:"explanation"`
	ExternalSignals   any    `json:"external_signals"`
	RiskFactors       any    `json:"risk_factors"`
	RiskFactorsFound  any    `json:"risk_factors_found"`
}

var (
	fenceRe       = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	ratingLabelRe = regexp.MustCompile(`(?i)\b(recommend(?:ed|ation)?(?:[ _]risk)?(?:[ _]rating)?|risk[ _]rating|rating)\s*["']?\s*[:=\-–]\s*["'*]*\s*([A-Za-z]+)`)
	explainRe     = regexp.MustCompile(`(?is)explanation\s*["']?\s*[:\-]\s*(.+)`)
	urlRe         = xurls.Strict()
)

// Parse reads raw LLM text. Citations are URLs that appear in the response
// and whose normalized form is in allowed; nothing else is ever cited.
func Parse(raw string, allowed []string) Parsed {
	out := Parsed{Rating: model.RatingUnclear, Citations: []string{}}
	text := strings.TrimSpace(raw)
	if text == "" {
		return out
	}

	body := stripFences(text)
	if p, ok := decodeObject(body); ok {
		out = fromPayload(p, out)
	}

	if !out.OK {
		if r := labelledRating(body); r.Valid() {
			out.Rating = r
			out.OK = true
		}
	}
	if out.Explanation == "" {
		if m := explainRe.FindStringSubmatch(body); m != nil {
			out.Explanation = strings.TrimSpace(m[1])
		}
	}
	if out.Explanation == "" {
		out.Explanation = text
	}

	out.Citations = citations(raw, allowed)
	return out
}

// staleQualifiers mark a label as naming the rating under review rather than
// the answer, e.g. an echoed "Current Risk Rating: Medium" header.
var staleQualifiers = []string{"current", "existing", "previous", "old"}

// labelledRating scans every "label: value" pair in prose. A recommendation
// label wins outright; a bare rating label counts only when its line does not
// qualify it as the current rating.
func labelledRating(body string) model.Rating {
	fallback := model.RatingUnclear
	for _, m := range ratingLabelRe.FindAllStringSubmatchIndex(body, -1) {
		// "high-level" is prose, not a rating.
		if m[5] < len(body) && body[m[5]] == '-' {
			continue
		}
		r := model.ParseRating(body[m[4]:m[5]])
		if !r.Valid() {
			continue
		}
		label := strings.ToLower(body[m[2]:m[3]])
		if strings.Contains(label, "recommend") {
			return r
		}
		if fallback == model.RatingUnclear && !isStale(body, m[0]) {
			fallback = r
		}
	}
	return fallback
}

func isStale(body string, at int) bool {
	lead := strings.ToLower(body[strings.LastIndexByte(body[:at], '\n')+1 : at])
	for _, q := range staleQualifiers {
		if strings.Contains(lead, q) {
			return true
		}
	}
	return false
}

func fromPayload(p payload, out Parsed) Parsed {
	rating := p.RecommendedRating
	if rating == "" {
		rating = p.Rating
	}
	if r := model.ParseRating(rating); r.Valid() {
		out.Rating = r
		out.OK = true
	}
	out.Explanation = flatten(p.Explanation)
	out.ExternalSignals = flatten(p.ExternalSignals)
	out.RiskFactors = flatten(p.RiskFactors)
	if out.RiskFactors == "" {
		out.RiskFactors = flatten(p.RiskFactorsFound)
	}
	out.IsCorrect = asBool(p.IsCorrect)
	return out
}

// stripFences returns the content of the first fenced block, or text
// unchanged when there is none.
func stripFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// decodeObject decodes the outermost {...} span of text.
func decodeObject(text string) (payload, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return payload{}, false
	}
	var p payload
	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return payload{}, false
	}
	return p, true
}

// flatten renders a string or list-of-strings JSON value as text.
func flatten(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := flatten(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func asBool(v any) *bool {
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "correct":
			b = true
		case "false", "no", "incorrect":
			b = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}

// citations returns the allowed URLs mentioned in raw, in order of first
// appearance. The returned URL is the allowed (prompted) form.
func citations(raw string, allowed []string) []string {
	out := []string{}
	if len(allowed) == 0 {
		return out
	}
	index := make(map[string]string, len(allowed))
	for _, u := range allowed {
		if key := search.NormalizeURL(u); key != "" {
			if _, dup := index[key]; !dup {
				index[key] = u
			}
		}
	}

	seen := make(map[string]bool)
	for _, found := range urlRe.FindAllString(raw, -1) {
		found = strings.TrimRight(found, `.,;:"'`)
		key := search.NormalizeURL(found)
		u, ok := index[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}
