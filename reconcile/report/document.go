package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

const rule = "================================================================================"

// WriteDocument renders r as a plain text document.
func WriteDocument(w io.Writer, r ComparisonReport) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(bw, format+"\n", args...)
	}

	p(rule)
	p("DATASET RECONCILIATION REPORT")
	p(rule)
	p("Session: %s", r.SessionID)
	p("Source: %s dataset %s", r.SourceID, r.DatasetID)
	p("Warehouse: %s table %s", r.WarehouseID, r.Table)
	p("Key columns: %s", strings.Join(r.KeyColumns, ", "))
	p("Timestamp: %s", r.Timestamp.UTC().Format(time.RFC3339))
	if r.TransformNames {
		p("Column transformation: applied")
	} else {
		p("Column transformation: not applied")
	}
	if r.Sampling != nil {
		p("Sampling method: %s", r.Sampling.Method)
	}

	if len(r.Errors) > 0 {
		p("")
		p("ERRORS (%d):", len(r.Errors))
		for i, e := range r.Errors {
			p("  %d. %s: %s", i+1, e.Section, e.Error)
			if e.Details != "" {
				p("     Details: %s", e.Details)
			}
		}
	}

	p("")
	p("SCHEMA COMPARISON:")
	if s := r.Schema; s == nil {
		p("  not available")
	} else {
		p("  Source columns: %d", s.SourceColumns)
		p("  Warehouse columns: %d", s.WarehouseColumns)
		p("  Common columns: %d", len(s.CommonColumns))
		p("  Missing columns: %s", list(s.MissingInWarehouse))
		p("  Extra columns: %s", list(s.ExtraInWarehouse))
		if len(s.TypeMismatches) > 0 {
			p("  Type mismatches (%d):", len(s.TypeMismatches))
			for _, m := range s.TypeMismatches {
				p("    %s: %s vs %s", m.Column, m.SourceType, m.WarehouseType)
			}
		}
		for _, m := range s.FuzzyMatches {
			p("  Fuzzy match: %s -> %s (%.2f)", m.SourceColumn, m.WarehouseColumn, m.Confidence)
		}
		for _, m := range s.Suggestions {
			p("  Suggested match: %s -> %s (%.2f)", m.SourceColumn, m.WarehouseColumn, m.Confidence)
		}
		if s.Match {
			p("  Schema matches")
		} else {
			p("  Schema differences found")
		}
	}

	p("")
	p("ROW COUNT COMPARISON:")
	if rc := r.RowCount; rc == nil {
		p("  not available")
	} else {
		p("  Source rows: %d", rc.SourceCount)
		p("  Warehouse rows: %d", rc.WarehouseCount)
		p("  Difference: %d (%.3f%%)", rc.Difference, rc.Percentage)
		switch {
		case rc.Match:
			p("  Row counts match")
		case rc.Analysis.IsNegligible:
			p("  Difference is negligible: %s", rc.Analysis.Reason)
		default:
			p("  %s", rc.Analysis.Reason)
		}
	}

	if s := r.Sampling; s != nil {
		p("")
		p("SAMPLING:")
		if s.Method != s.RequestedMethod {
			p("  Method: %s (requested %s)", s.Method, s.RequestedMethod)
			p("  Fallback reason: %s", s.FallbackReason)
		} else {
			p("  Method: %s", s.Method)
		}
		p("  Sample size: %d", s.SampleSize)
		if s.KeyUniverseSize > 0 {
			p("  Key universe: %d", s.KeyUniverseSize)
		}
		p("  Batches: %d", s.Batches)
		p("  Source sample rows: %d", s.SourceRows)
		p("  Warehouse sample rows: %d", s.WarehouseRows)
		if len(s.OneSidedBatches) > 0 {
			p("  Batches with data from one system only: %v", s.OneSidedBatches)
		}
		if s.LowRetrieval {
			p("  Warning: fewer than 80%% of sampled rows were retrieved")
		}
	}

	p("")
	p("DATA COMPARISON:")
	if d := r.Data; d == nil {
		p("  not available")
	} else {
		p("  Rows compared: %d", d.RowsCompared)
		p("  Missing in warehouse: %d", d.MissingInWarehouse)
		p("  Extra in warehouse: %d", d.ExtraInWarehouse)
		p("  Rows with differences: %d", d.RowsWithDifferences)
		p("  Columns with different values: %s", list(d.ColumnsWithDifferences))
		if len(d.TypeLabelOnlyColumns) > 0 {
			p("  Columns differing in type only: %s", list(d.TypeLabelOnlyColumns))
		}
		if len(d.CoercedKeyColumns) > 0 {
			p("  Key columns aligned as text: %s", list(d.CoercedKeyColumns))
		}
		p("  Match rate: %.2f%%", d.MatchRate)
		for _, k := range d.MissingKeys {
			p("  Missing key: (%s)", strings.Join(k, ", "))
		}
		for _, k := range d.ExtraKeys {
			p("  Extra key: (%s)", strings.Join(k, ", "))
		}
		for _, k := range d.DifferingKeys {
			p("  Differing key: (%s)", strings.Join(k, ", "))
		}
	}

	p("")
	switch {
	case len(r.Errors) > 0:
		p("OVERALL STATUS: ERRORS FOUND")
	case r.OverallMatch:
		p("OVERALL STATUS: PERFECT MATCH")
	default:
		p("OVERALL STATUS: DISCREPANCIES FOUND")
	}
	p(rule)
	return bw.Flush()
}

func list(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
