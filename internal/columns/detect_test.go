package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-cli/internal/model"
)

func TestDetect_StandardSheet(t *testing.T) {
	names := []string{"Company Name", "Q1", "Q2", "Comments", "Risk Rating"}
	sample := model.Row{
		"Company Name": "Acme Corp",
		"Q1":           "Yes",
		"Q2":           "No",
		"Comments":     "Late payments reported",
		"Risk Rating":  "Medium",
	}

	roles, err := Detect(names, sample)

	require.NoError(t, err)
	assert.Equal(t, "Company Name", roles.Company)
	assert.Equal(t, "Risk Rating", roles.RiskRating)
	assert.Equal(t, "Comments", roles.Comments)
	assert.Equal(t, []string{"Q1", "Q2"}, roles.Questionnaire)
}

func TestDetect_CompanyIsFirstMatchCaseInsensitive(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{"upper", []string{"ID", "COMPANY", "Company Name"}, "COMPANY"},
		{"snake", []string{"row", "company_name", "notes"}, "company_name"},
		{"mixed", []string{"Vendor Company", "Company"}, "Vendor Company"},
		{"name only", []string{"Score", "Name"}, "Name"},
		{"none", []string{"Q1", "Score"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roles, err := Detect(tt.names, nil)
			if tt.want == "" {
				assert.ErrorIs(t, err, ErrNoCompanyColumn)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, roles.Company)
		})
	}
}

func TestDetect_NoCompanyColumn(t *testing.T) {
	_, err := Detect([]string{"Q1", "Q2", "Risk Rating", "Comments"}, nil)
	assert.ErrorIs(t, err, ErrNoCompanyColumn)

	_, err = Detect(nil, nil)
	assert.ErrorIs(t, err, ErrNoCompanyColumn)
}

func TestDetect_ColumnClaimedOnce(t *testing.T) {
	// "Company Risk Rating" matches both company and rating aliases; it is
	// taken by company and the rating role moves on.
	roles, err := Detect([]string{"Company Risk Rating", "Rating"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Company Risk Rating", roles.Company)
	assert.Equal(t, "Rating", roles.RiskRating)
	assert.Empty(t, roles.Questionnaire)
}

func TestDetect_EmptySampleCellsIgnored(t *testing.T) {
	names := []string{"Company", "Q1", "Unused", "Q3"}
	sample := model.Row{"Company": "Acme", "Q1": "Yes", "Unused": "  ", "Q3": "n/a"}

	roles, err := Detect(names, sample)

	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q3"}, roles.Questionnaire)
	assert.Empty(t, roles.RiskRating)
	assert.Empty(t, roles.Comments)
}

func TestDetector_CustomAliases(t *testing.T) {
	d := NewDetector(Aliases{Company: []string{"Firm"}})

	roles, err := d.Detect([]string{"Firm", "Company", "Risk"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Firm", roles.Company)
	assert.Equal(t, "Risk", roles.RiskRating)
	assert.Equal(t, []string{"Company"}, roles.Questionnaire)
}
