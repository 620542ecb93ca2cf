package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/risk-cli/internal/model"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatYAML, formatTable:
		return nil
	default:
		return eris.Errorf("unsupported format %q (want json, yaml or table)", format)
	}
}

// writeValue encodes v as JSON or YAML.
func writeValue(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

// writeResults renders results in format.
func writeResults(w io.Writer, format string, results []model.AssessmentResult) error {
	if format == formatTable {
		formatResults(w, results)
		return nil
	}
	return writeValue(w, format, results)
}

// formatResults writes a compact result table followed by the run summary.
func formatResults(out io.Writer, results []model.AssessmentResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMPANY\tMODE\tCURRENT\tRECOMMENDED\tSTATUS\tSOURCES\tNOTE")
	_, _ = fmt.Fprintln(w, "-------\t----\t-------\t-----------\t------\t-------\t----")

	for _, r := range results {
		note := r.Error
		if note == "" && len(r.Notes) > 0 {
			note = strings.Join(r.Notes, "; ")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			clip(r.Company, 30),
			r.Mode,
			dash(r.CurrentRating),
			dash(string(r.RecommendedRating)),
			r.Status,
			len(r.EvidenceLinks),
			clip(note, 60),
		)
	}
	_ = w.Flush()

	s := model.Summarize(results)
	_, _ = fmt.Fprintf(out, "\n%d pairs: %d ok, %d partial, %d failed\n", s.Pairs, s.OK, s.Partial, s.Failed)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
