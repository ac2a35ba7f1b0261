package compare

import (
	"bytes"
	"testing"
	"time"

	"github.com/argodata/argo/reconcile/report"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func failedReport() report.ComparisonReport {
	b := report.NewBuilder(report.Header{
		SessionID:  "session-1",
		DatasetID:  "ds-1",
		Table:      "ANALYTICS.PUBLIC.ORDERS",
		KeyColumns: []string{"ID"},
		Timestamp:  time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	})
	b.AddError(report.SectionConnection, errors.New("domo url must contain client credentials"))
	return b.Build()
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderSummary(&buf, failedReport()))
	out := buf.String()
	require.Contains(t, out, "ds-1 -> ANALYTICS.PUBLIC.ORDERS (unknown)")
	require.Contains(t, out, "COMPARISON FAILED")
	require.Contains(t, out, "Connection: domo url must contain client credentials")
	require.Contains(t, out, "Recommendations:")
}

func TestExitError(t *testing.T) {
	err := exitError(failedReport(), false)
	require.True(t, errors.Is(err, ErrComparisonFailed))
	require.EqualError(t, err, "errors in Connection: comparison failed")

	mismatch := report.ComparisonReport{Errors: []report.Error{}}
	require.NoError(t, exitError(mismatch, false))
	require.True(t, errors.Is(exitError(mismatch, true), ErrDiscrepancies))

	mismatch.OverallMatch = true
	require.NoError(t, exitError(mismatch, true))
}
