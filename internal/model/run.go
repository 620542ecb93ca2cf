package model

import "time"

// Run is one saved assessment invocation.
type Run struct {
	ID        string             `json:"id" yaml:"id"`
	Source    string             `json:"source" yaml:"source"`
	Modes     []Mode             `json:"modes" yaml:"modes"`
	Providers []string           `json:"providers,omitempty" yaml:"providers,omitempty"`
	Summary   RunSummary         `json:"summary" yaml:"summary"`
	CreatedAt time.Time          `json:"created_at" yaml:"created_at"`
	Results   []AssessmentResult `json:"results,omitempty" yaml:"results,omitempty"`
}

// RunSummary counts results by status.
type RunSummary struct {
	Pairs   int `json:"pairs" yaml:"pairs"`
	OK      int `json:"ok" yaml:"ok"`
	Partial int `json:"partial" yaml:"partial"`
	Failed  int `json:"failed" yaml:"failed"`
}

// Summarize counts results by status.
func Summarize(results []AssessmentResult) RunSummary {
	s := RunSummary{Pairs: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusPartial:
			s.Partial++
		default:
			s.Failed++
		}
	}
	return s
}
