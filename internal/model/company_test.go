package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() *Dataset {
	return NewDataset(
		[]string{"Company Name", "Q1", "Risk Rating"},
		[][]string{
			{"Acme Corp", "Yes", "Medium"},
			{"", "", ""},
			{"Globex", "No"},
			{"  acme corp ", "No", "High"},
		},
	)
}

func TestNewDataset_SkipsBlankRowsAndPads(t *testing.T) {
	ds := testDataset()

	require.Len(t, ds.Rows, 3)
	assert.Equal(t, "Globex", ds.Rows[1]["Company Name"])
	assert.Equal(t, "", ds.Rows[1]["Risk Rating"])
}

func TestCompanies_FirstOccurrenceWins(t *testing.T) {
	ds := testDataset()
	roles := ColumnRoleMap{Company: "Company Name", RiskRating: "Risk Rating"}

	companies := ds.Companies(roles)

	require.Len(t, companies, 2)
	assert.Equal(t, "Acme Corp", companies[0].Name)
	assert.Equal(t, 0, companies[0].Index)
	assert.Equal(t, "Medium", roles.CurrentRating(companies[0].Row))
	assert.Equal(t, "Globex", companies[1].Name)
}

func TestLookup(t *testing.T) {
	ds := testDataset()
	roles := ColumnRoleMap{Company: "Company Name"}

	c, ok := ds.Lookup(roles, "ACME CORP")
	require.True(t, ok)
	assert.Equal(t, 0, c.Index)

	_, ok = ds.Lookup(roles, "Initech")
	assert.False(t, ok)

	_, ok = ds.Lookup(roles, "   ")
	assert.False(t, ok)
}

func TestCompanies_NoCompanyColumn(t *testing.T) {
	ds := testDataset()
	assert.Nil(t, ds.Companies(ColumnRoleMap{}))
}
