// Package columns classifies spreadsheet headers into the logical roles the
// risk engine needs (company, current rating, comments, questionnaire).
package columns

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/risk-cli/internal/model"
)

// ErrNoCompanyColumn is returned when no header matches a company alias. The
// dataset cannot be assessed without one.
var ErrNoCompanyColumn = eris.New("columns: no company column detected")

// Aliases lists the case-insensitive substrings that identify each role.
type Aliases struct {
	Company    []string `yaml:"company" mapstructure:"company"`
	RiskRating []string `yaml:"risk_rating" mapstructure:"risk_rating"`
	Comments   []string `yaml:"comments" mapstructure:"comments"`
}

// DefaultAliases returns the built-in alias lists.
func DefaultAliases() Aliases {
	return Aliases{
		Company:    []string{"company", "organisation", "organization", "vendor", "name"},
		RiskRating: []string{"risk rating", "risk level", "risk", "rating"},
		Comments:   []string{"comment", "notes", "note", "remarks", "commentary"},
	}
}

// WithDefaults fills any empty alias list from DefaultAliases so config can
// override a single role.
func (a Aliases) WithDefaults() Aliases {
	d := DefaultAliases()
	if len(a.Company) == 0 {
		a.Company = d.Company
	}
	if len(a.RiskRating) == 0 {
		a.RiskRating = d.RiskRating
	}
	if len(a.Comments) == 0 {
		a.Comments = d.Comments
	}
	return a
}

// Detector assigns column roles by alias matching.
type Detector struct {
	aliases Aliases
}

// NewDetector creates a Detector. Empty alias lists fall back to defaults.
func NewDetector(aliases Aliases) *Detector {
	a := aliases.WithDefaults()
	return &Detector{
		aliases: Aliases{
			Company:    normalizeAll(a.Company),
			RiskRating: normalizeAll(a.RiskRating),
			Comments:   normalizeAll(a.Comments),
		},
	}
}

// Detect classifies names using the default aliases.
func Detect(names []string, sample model.Row) (model.ColumnRoleMap, error) {
	return NewDetector(Aliases{}).Detect(names, sample)
}

// Detect resolves roles in the order company, risk rating, comments. For each
// role the left-most header containing any alias wins, and a header claimed
// by one role is not considered for the next. Remaining headers become
// questionnaire columns when sample has text for them; a nil sample keeps
// every remaining header.
func (d *Detector) Detect(names []string, sample model.Row) (model.ColumnRoleMap, error) {
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = normalize(n)
	}

	claimed := make([]bool, len(names))
	pick := func(aliases []string) string {
		for i, n := range normalized {
			if claimed[i] || n == "" {
				continue
			}
			if containsAny(n, aliases) {
				claimed[i] = true
				return names[i]
			}
		}
		return ""
	}

	roles := model.ColumnRoleMap{Company: pick(d.aliases.Company)}
	if roles.Company == "" {
		return model.ColumnRoleMap{}, ErrNoCompanyColumn
	}
	roles.RiskRating = pick(d.aliases.RiskRating)
	roles.Comments = pick(d.aliases.Comments)

	roles.Questionnaire = []string{}
	for i, name := range names {
		if claimed[i] || strings.TrimSpace(name) == "" {
			continue
		}
		if sample != nil && sample.Get(name) == "" {
			continue
		}
		roles.Questionnaire = append(roles.Questionnaire, name)
	}

	return roles, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// normalize folds case and treats underscores, hyphens and runs of
// whitespace as a single space. A Caser is not safe for concurrent use, so
// one is created per call.
func normalize(s string) string {
	s = cases.Fold().String(s)
	s = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
