package model

import (
	"strings"

	"go.uber.org/zap"
)

// Row is a single spreadsheet row keyed by column name.
type Row map[string]string

// Get returns the trimmed cell text for col, or "" if absent.
func (r Row) Get(col string) string {
	if col == "" {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Dataset is an in-memory table loaded once per session. Rows are never
// mutated after load.
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewDataset builds a dataset from a header and positional records. Short
// records are padded with empty cells; extra cells are dropped.
func NewDataset(header []string, records [][]string) *Dataset {
	ds := &Dataset{Columns: append([]string(nil), header...)}
	for _, rec := range records {
		row := make(Row, len(header))
		empty := true
		for i, col := range header {
			var v string
			if i < len(rec) {
				v = rec[i]
			}
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			row[col] = v
		}
		if empty {
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

// Sample returns the first row, or nil for an empty dataset.
func (d *Dataset) Sample() Row {
	if d == nil || len(d.Rows) == 0 {
		return nil
	}
	return d.Rows[0]
}

// Company is one assessable entity, identified by the value of the company
// column.
type Company struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	Row   Row    `json:"-"`
}

// Companies lists every distinct company in row order. When a name appears
// more than once the first row wins and later rows are skipped.
func (d *Dataset) Companies(roles ColumnRoleMap) []Company {
	if d == nil || roles.Company == "" {
		return nil
	}
	seen := make(map[string]bool, len(d.Rows))
	out := make([]Company, 0, len(d.Rows))
	for i, row := range d.Rows {
		name := row.Get(roles.Company)
		if name == "" {
			continue
		}
		key := companyKey(name)
		if seen[key] {
			zap.L().Debug("model: duplicate company row ignored",
				zap.String("company", name),
				zap.Int("row", i),
			)
			continue
		}
		seen[key] = true
		out = append(out, Company{Name: name, Index: i, Row: row})
	}
	return out
}

// Lookup finds the first row whose company cell matches name. Matching is
// case-insensitive and ignores surrounding whitespace.
func (d *Dataset) Lookup(roles ColumnRoleMap, name string) (Company, bool) {
	if d == nil || roles.Company == "" {
		return Company{}, false
	}
	key := companyKey(name)
	if key == "" {
		return Company{}, false
	}
	for i, row := range d.Rows {
		if companyKey(row.Get(roles.Company)) == key {
			return Company{Name: row.Get(roles.Company), Index: i, Row: row}, true
		}
	}
	return Company{}, false
}

func companyKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ColumnRoleMap records which physical column serves each logical role.
// Company is required; the others may be empty.
type ColumnRoleMap struct {
	Company       string   `json:"company" yaml:"company"`
	RiskRating    string   `json:"risk_rating,omitempty" yaml:"risk_rating,omitempty"`
	Comments      string   `json:"comments,omitempty" yaml:"comments,omitempty"`
	Questionnaire []string `json:"questionnaire" yaml:"questionnaire"`
}

// CurrentRating returns the company's existing rating cell, if the rating
// column was detected.
func (m ColumnRoleMap) CurrentRating(row Row) string {
	return row.Get(m.RiskRating)
}
