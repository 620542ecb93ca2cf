package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Rating is a value on the fixed operational risk scale.
type Rating string

const (
	RatingLow    Rating = "Low"
	RatingMedium Rating = "Medium"
	RatingHigh   Rating = "High"

	// RatingUnclear is the sentinel used when no valid rating could be read.
	RatingUnclear Rating = "Unclear"
)

// Scale is the ordered set of ratings the LLM must choose from.
var Scale = []Rating{RatingLow, RatingMedium, RatingHigh}

var ratingAliases = map[string]Rating{
	"low":      RatingLow,
	"medium":   RatingMedium,
	"med":      RatingMedium,
	"moderate": RatingMedium,
	"high":     RatingHigh,
}

// ParseRating maps free text onto the scale. Anything that is not exactly a
// scale value (ignoring case, quotes, markdown emphasis and a trailing
// "risk") maps to RatingUnclear.
func ParseRating(s string) Rating {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.Trim(v, "\"'*`_.,;:!()[] ")
	v = strings.TrimSuffix(v, " risk")
	v = strings.TrimSpace(v)
	if r, ok := ratingAliases[v]; ok {
		return r
	}
	return RatingUnclear
}

// Valid reports whether r is on the scale.
func (r Rating) Valid() bool {
	for _, s := range Scale {
		if r == s {
			return true
		}
	}
	return false
}

// Mode selects which evidence source feeds the prompt.
type Mode string

const (
	ModeQuestionnaire  Mode = "questionnaire"
	ModeComments       Mode = "comments"
	ModeInternetSearch Mode = "internet_search"
)

// Modes lists every evidence mode in canonical order.
var Modes = []Mode{ModeQuestionnaire, ModeComments, ModeInternetSearch}

// ParseMode accepts canonical mode names plus the short aliases "internet"
// and "search".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "questionnaire", "q":
		return ModeQuestionnaire, nil
	case "comments", "comment":
		return ModeComments, nil
	case "internet_search", "internet", "search", "web":
		return ModeInternetSearch, nil
	default:
		return "", eris.Errorf("model: unknown evidence mode %q", s)
	}
}

// ParseModes parses a list of mode names, dropping duplicates while keeping
// the first occurrence's position.
func ParseModes(names []string) ([]Mode, error) {
	seen := make(map[Mode]bool, len(names))
	out := make([]Mode, 0, len(names))
	for _, n := range names {
		m, err := ParseMode(n)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out, nil
}
