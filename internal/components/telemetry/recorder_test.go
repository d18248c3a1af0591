package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedRecorder(t *testing.T) {
	rec := &Recorder{}
	tel := NewScopedAPI("outer", NewScopedAPI("inner", rec))

	tel.ReportBroken("loader.retry", errors.New("boom"))
	tel.ReportWarning("loader.drop", "recipe")
	tel.ReportDebug("state change")
	tel.ReportCount("loader.persisted", 3)

	reports := rec.Reports()
	require.Len(t, reports, 4)
	require.Equal(t, "outer: inner: loader.retry", reports[0].Id)
	require.Equal(t, REPORT_BROKEN, reports[0].Kind)

	require.Len(t, rec.Find(REPORT_WARNING, "loader.drop"), 1)
	require.Len(t, rec.Find(REPORT_BROKEN, "loader.drop"), 0)

	counts := rec.Find(REPORT_COUNT, "loader.persisted")
	require.Len(t, counts, 1)
	require.Equal(t, int64(3), counts[0].Count)
}
