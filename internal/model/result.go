package model

// Status is the outcome class of one (company, mode) assessment.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// SearchResult is one normalized hit from a search provider. URL is the
// deduplication key within an aggregation run.
type SearchResult struct {
	Title    string `json:"title" yaml:"title"`
	Snippet  string `json:"snippet" yaml:"snippet"`
	URL      string `json:"url" yaml:"url"`
	Provider string `json:"provider" yaml:"provider"`
}

// EvidenceBundle is the evidence gathered for one company in one mode.
type EvidenceBundle struct {
	Company       string
	Mode          Mode
	CurrentRating string

	// Snippets holds text evidence in source order (questionnaire lines or
	// comment text).
	Snippets []string

	// Results holds search evidence for internet mode.
	Results []SearchResult

	// Context is optional internal commentary shown alongside web evidence.
	Context string

	// Degraded marks evidence that was gathered with recoverable failures.
	Degraded bool
	Notes    []string
}

// AssessmentResult is the record handed back to the presentation layer. It
// is never modified after it is returned.
type AssessmentResult struct {
	Company           string   `json:"company" yaml:"company"`
	Mode              Mode     `json:"mode" yaml:"mode"`
	CurrentRating     string   `json:"current_rating" yaml:"current_rating"`
	RecommendedRating Rating   `json:"recommended_rating" yaml:"recommended_rating"`
	Explanation       string   `json:"explanation" yaml:"explanation"`
	EvidenceLinks     []string `json:"evidence_links" yaml:"evidence_links"`
	Status            Status   `json:"status" yaml:"status"`
	IsCorrect         *bool    `json:"is_correct,omitempty" yaml:"is_correct,omitempty"`
	RiskFactors       string   `json:"risk_factors,omitempty" yaml:"risk_factors,omitempty"`
	ExternalSignals   string   `json:"external_signals,omitempty" yaml:"external_signals,omitempty"`
	Notes             []string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Error             string   `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS        int64    `json:"duration_ms" yaml:"duration_ms"`
}
