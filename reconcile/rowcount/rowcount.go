// Package rowcount compares the total number of rows held by a dataset and
// its warehouse replica.
package rowcount

import (
	"context"
	"fmt"

	"github.com/argodata/argo/dbconn"
	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/reconcile/querybuild"
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
)

// Policy decides when a difference in row counts is negligible.
type Policy struct {
	// MaxAbsolute differences are always negligible.
	MaxAbsolute int64
	// MaxPercent differences are always negligible.
	MaxPercent float64
	// LargeMaxPercent differences are negligible once the larger count is at
	// least LargeThreshold.
	LargeMaxPercent float64
	LargeThreshold  int64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAbsolute:     10,
		MaxPercent:      0.1,
		LargeMaxPercent: 1.0,
		LargeThreshold:  10000,
	}
}

type Analysis struct {
	IsNegligible bool    `json:"is_negligible"`
	Reason       string  `json:"reason"`
	Percentage   float64 `json:"percentage"`
}

type Result struct {
	SourceCount    int64    `json:"source_count"`
	WarehouseCount int64    `json:"warehouse_count"`
	Difference     int64    `json:"difference"`
	Percentage     float64  `json:"percentage"`
	Match          bool     `json:"match"`
	Analysis       Analysis `json:"analysis"`
}

// Acceptable is true if the counts match or differ negligibly.
func (r Result) Acceptable() bool {
	return r.Match || r.Analysis.IsNegligible
}

// Analyze compares two row counts under the policy. The percentage is
// relative to the larger count.
func Analyze(source, warehouse int64, p Policy) Result {
	diff := source - warehouse
	if diff < 0 {
		diff = -diff
	}
	res := Result{
		SourceCount:    source,
		WarehouseCount: warehouse,
		Difference:     diff,
		Match:          diff == 0,
	}
	larger := source
	if warehouse > larger {
		larger = warehouse
	}
	switch {
	case larger == 0:
		res.Analysis = Analysis{IsNegligible: true, Reason: "Both datasets are empty"}
		return res
	case source == 0 || warehouse == 0:
		res.Percentage = 100
		res.Analysis = Analysis{Reason: "One dataset is empty", Percentage: 100}
		return res
	}
	pct := float64(diff) / float64(larger) * 100
	res.Percentage = pct
	a := Analysis{Percentage: pct}
	switch {
	case diff <= p.MaxAbsolute:
		a.IsNegligible = true
		a.Reason = fmt.Sprintf("Very small absolute difference (%d rows)", diff)
	case pct <= p.MaxPercent:
		a.IsNegligible = true
		a.Reason = fmt.Sprintf("Very small percentage difference (%.3f%%)", pct)
	case pct <= p.LargeMaxPercent && larger >= p.LargeThreshold:
		a.IsNegligible = true
		a.Reason = fmt.Sprintf("Small percentage difference for large dataset (%.3f%%)", pct)
	default:
		a.Reason = fmt.Sprintf("Significant difference: %d rows (%.3f%%)", diff, pct)
	}
	res.Analysis = a
	return res
}

// Compare counts the rows of the dataset and of the warehouse table.
func Compare(
	ctx context.Context, conns dbconn.Conns, datasetID string, table dbtable.Name, p Policy,
) (Result, error) {
	srcDialect, err := querybuild.LookupDialect(conns.Source.Dialect())
	if err != nil {
		return Result{}, err
	}
	whDialect, err := querybuild.LookupDialect(conns.Warehouse.Dialect())
	if err != nil {
		return Result{}, err
	}
	srcTable, err := conns.Source.Execute(ctx, datasetID, querybuild.SelectCount(srcDialect, dbtable.Name{}))
	if err != nil {
		return Result{}, errors.Wrapf(err, "error counting rows of dataset %s", datasetID)
	}
	srcCount, err := count(srcTable)
	if err != nil {
		return Result{}, errors.Wrapf(err, "error counting rows of dataset %s", datasetID)
	}
	whTable, err := conns.Warehouse.Execute(ctx, querybuild.SelectCount(whDialect, table))
	if err != nil {
		return Result{}, errors.Wrapf(err, "error counting rows of %s", table)
	}
	whCount, err := count(whTable)
	if err != nil {
		return Result{}, errors.Wrapf(err, "error counting rows of %s", table)
	}
	return Analyze(srcCount, whCount, p), nil
}

func count(t *rowset.Table) (int64, error) {
	if t.Len() != 1 || len(t.Rows[0]) == 0 {
		return 0, errors.Newf("expected a single count row, got %d rows", t.Len())
	}
	v := t.Rows[0][0]
	n, ok := v.Int64()
	if !ok || n < 0 {
		return 0, errors.Newf("count %s is not a whole number", v)
	}
	return n, nil
}
