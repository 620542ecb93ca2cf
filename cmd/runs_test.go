package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/risk-cli/internal/model"
)

func testRuns() []model.Run {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	return []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Source:    "vendors-q2.xlsx",
			Modes:     []model.Mode{model.ModeComments, model.ModeInternetSearch},
			Summary:   model.RunSummary{Pairs: 4, OK: 3, Partial: 1},
			CreatedAt: now,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Source:    "vendors-q1.csv",
			Modes:     []model.Mode{model.ModeQuestionnaire},
			Summary:   model.RunSummary{Pairs: 2, OK: 1, Failed: 1},
			CreatedAt: now.Add(-30 * 24 * time.Hour),
		},
	}
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, testRuns())

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "SOURCE")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "vendors-q2.xlsx")
	assert.Contains(t, output, "comments,internet_search")
	assert.Contains(t, output, "2025-06-15 10:30")
}

func TestComputeRunStats(t *testing.T) {
	runs := testRuns()

	all := computeRunStats(runs, time.Time{})
	assert.Equal(t, runStats{Runs: 2, Pairs: 6, OK: 4, Partial: 1, Failed: 1}, all)

	recent := computeRunStats(runs, runs[0].CreatedAt.Add(-24*time.Hour))
	assert.Equal(t, runStats{Runs: 1, Pairs: 4, OK: 3, Partial: 1}, recent)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Runs: 2, Pairs: 4, OK: 2, Partial: 1, Failed: 1})

	output := buf.String()
	assert.Contains(t, output, "Runs:")
	assert.Contains(t, output, "50.0%")
}

func TestFormatRunStats_NoPairs(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{})
	assert.NotContains(t, buf.String(), "OK rate")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
}
