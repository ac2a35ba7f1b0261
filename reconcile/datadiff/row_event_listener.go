package datadiff

import (
	"fmt"

	"github.com/argodata/argo/reconcile/inconsistency"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type RowEventListener interface {
	OnExtraneousRow(row inconsistency.ExtraneousRow)
	OnMissingRow(row inconsistency.MissingRow)
	OnMismatchingRow(row inconsistency.MismatchingRow)
	OnMatch()
	OnRowScan()
}

var (
	rowStatusMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "argo",
		Subsystem: "reconcile",
		Name:      "row_verification_status",
		Help:      "Status of sampled rows that have been compared.",
	}, []string{"status"})
	rowsReadMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "argo",
		Subsystem: "reconcile",
		Name:      "rows_compared",
		Help:      "Number of source rows that have been compared.",
	})
)

func init() {
	for _, s := range []string{"extraneous", "missing", "mismatching", "success"} {
		rowStatusMetric.WithLabelValues(s)
	}
}

type rowStats struct {
	numVerified   int
	numSuccess    int
	numMissing    int
	numMismatch   int
	numExtraneous int
}

func (s *rowStats) String() string {
	return fmt.Sprintf(
		"source rows seen: %d, success: %d, missing: %d, mismatch: %d, extraneous: %d",
		s.numVerified,
		s.numSuccess,
		s.numMissing,
		s.numMismatch,
		s.numExtraneous,
	)
}

// defaultRowEventListener forwards row findings to a reporter and keeps
// running totals.
type defaultRowEventListener struct {
	reporter inconsistency.Reporter
	stats    rowStats
	target   inconsistency.Target
}

func (n *defaultRowEventListener) OnExtraneousRow(row inconsistency.ExtraneousRow) {
	n.reporter.Report(row)
	n.stats.numExtraneous++
	rowStatusMetric.WithLabelValues("extraneous").Inc()
}

func (n *defaultRowEventListener) OnMissingRow(row inconsistency.MissingRow) {
	n.stats.numMissing++
	n.reporter.Report(row)
	rowStatusMetric.WithLabelValues("missing").Inc()
}

func (n *defaultRowEventListener) OnMismatchingRow(row inconsistency.MismatchingRow) {
	n.reporter.Report(row)
	n.stats.numMismatch++
	rowStatusMetric.WithLabelValues("mismatching").Inc()
}

func (n *defaultRowEventListener) OnMatch() {
	n.stats.numSuccess++
	rowStatusMetric.WithLabelValues("success").Inc()
}

func (n *defaultRowEventListener) OnRowScan() {
	if n.stats.numVerified%10000 == 0 && n.stats.numVerified > 0 {
		n.reporter.Report(inconsistency.StatusReport{
			Info: fmt.Sprintf("progress on dataset %s: %s", n.target.DatasetID, n.stats.String()),
		})
	}
	rowsReadMetric.Inc()
	n.stats.numVerified++
}
