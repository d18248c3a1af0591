package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunReportTotals(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	report := RunReport{
		Id:         "run",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Summaries: []Summary{
			{Site: "a", Persisted: 3, Dropped: 1, SkippedElements: 2, Retries: 12},
			{Site: "b", Persisted: 4, Failed: 1, SkippedPages: 1, Error: true},
		},
	}

	total := report.Totals()
	require.Equal(t, 7, total.Persisted)
	require.Equal(t, 1, total.Dropped)
	require.Equal(t, 1, total.Failed)
	require.Equal(t, 2, total.SkippedElements)
	require.Equal(t, 1, total.SkippedPages)
	require.Equal(t, 12, total.Retries)
	require.True(t, total.Error)
	require.Equal(t, 90*time.Second, total.Duration)
	require.True(t, report.Failed())

	require.Equal(
		t,
		"b: error, 4 persisted, 0 dropped, 1 failed, 0 elements and 1 pages skipped in 0s",
		report.Summaries[1].String(),
	)
}
