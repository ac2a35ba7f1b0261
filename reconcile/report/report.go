// Package report assembles the outcome of a comparison into a structured
// report and renders it for people.
package report

import (
	"time"

	"github.com/argodata/argo/reconcile/batch"
	"github.com/argodata/argo/reconcile/colmap"
	"github.com/argodata/argo/reconcile/datadiff"
	"github.com/argodata/argo/reconcile/rowcount"
	"github.com/argodata/argo/reconcile/sampling"
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
)

// Sections errors are filed under.
const (
	SectionConnection = "Connection"
	SectionSchema     = "Schema"
	SectionRowCount   = "Row Count"
	SectionSampling   = "Sampling"
	SectionData       = "Data"
	SectionExport     = "Debug Export"
)

// maxExamples bounds the keys listed per finding.
const maxExamples = 20

type Error struct {
	Section string `json:"section"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Header struct {
	SessionID      string    `json:"session_id"`
	SourceID       string    `json:"source_id"`
	DatasetID      string    `json:"dataset_id"`
	WarehouseID    string    `json:"warehouse_id"`
	Table          string    `json:"table"`
	KeyColumns     []string  `json:"key_columns"`
	Timestamp      time.Time `json:"timestamp"`
	TransformNames bool      `json:"transform_applied"`
}

type ColumnMatch struct {
	SourceColumn    string  `json:"source_column"`
	WarehouseColumn string  `json:"warehouse_column"`
	Confidence      float64 `json:"confidence"`
	Applied         bool    `json:"applied"`
}

type SchemaComparison struct {
	Match              bool                  `json:"schema_match"`
	SourceColumns      int                   `json:"source_columns"`
	WarehouseColumns   int                   `json:"warehouse_columns"`
	CommonColumns      []string              `json:"common_columns"`
	MissingInWarehouse []string              `json:"missing_in_warehouse"`
	ExtraInWarehouse   []string              `json:"extra_in_warehouse"`
	TypeMismatches     []colmap.TypeMismatch `json:"type_mismatches"`
	FuzzyMatches       []ColumnMatch         `json:"fuzzy_matches,omitempty"`
	Suggestions        []ColumnMatch         `json:"suggestions,omitempty"`
	MappingStats       colmap.MappingStats   `json:"mapping_stats"`
}

func columnMatches(in []colmap.FuzzyMatch) []ColumnMatch {
	var ret []ColumnMatch
	for _, m := range in {
		ret = append(ret, ColumnMatch{
			SourceColumn:    m.Source.Name,
			WarehouseColumn: m.Warehouse.Name,
			Confidence:      m.Confidence,
			Applied:         m.Applied,
		})
	}
	return ret
}

type Sampling struct {
	RequestedMethod string        `json:"requested_method"`
	Method          string        `json:"method"`
	FallbackReason  string        `json:"fallback_reason,omitempty"`
	SampleSize      int           `json:"sample_size"`
	KeyUniverseSize int           `json:"key_universe_size"`
	Seed            int64         `json:"seed"`
	Batches         int           `json:"batches"`
	BatchCounts     []batch.Count `json:"batch_counts"`
	OneSidedBatches []int         `json:"one_sided_batches,omitempty"`
	SourceRows      int           `json:"source_sample_rows"`
	WarehouseRows   int           `json:"warehouse_sample_rows"`
	// LowRetrieval is set if either system returned fewer than 80% of the
	// sampled keys.
	LowRetrieval bool `json:"low_retrieval"`
}

type DataComparison struct {
	RowsCompared           int            `json:"rows_compared"`
	WarehouseRows          int            `json:"warehouse_rows"`
	MatchedRows            int            `json:"matched_rows"`
	MissingInWarehouse     int            `json:"missing_in_warehouse"`
	ExtraInWarehouse       int            `json:"extra_in_warehouse"`
	RowsWithDifferences    int            `json:"rows_with_differences"`
	ColumnsCompared        []string       `json:"columns_compared"`
	ColumnsWithDifferences []string       `json:"columns_with_differences"`
	ColumnDifferences      map[string]int `json:"column_differences,omitempty"`
	TypeLabelOnlyColumns   []string       `json:"type_label_only_columns,omitempty"`
	CoercedKeyColumns      []string       `json:"coerced_key_columns,omitempty"`
	CoercedColumns         []string       `json:"coerced_columns,omitempty"`
	DuplicateKeys          bool           `json:"duplicate_keys"`
	MatchRate              float64        `json:"match_rate"`
	DataMatch              bool           `json:"data_match"`

	MissingKeys   [][]string `json:"missing_keys,omitempty"`
	ExtraKeys     [][]string `json:"extra_keys,omitempty"`
	DifferingKeys [][]string `json:"differing_keys,omitempty"`
}

func examples(keys []rowset.KeyTuple) [][]string {
	var ret [][]string
	for i, k := range keys {
		if i == maxExamples {
			break
		}
		ret = append(ret, k.Strings())
	}
	return ret
}

// ComparisonReport is the outcome of one comparison. It is not modified once
// built.
type ComparisonReport struct {
	Header

	Schema   *SchemaComparison `json:"schema_comparison,omitempty"`
	RowCount *rowcount.Result  `json:"row_count_comparison,omitempty"`
	Sampling *Sampling         `json:"sampling,omitempty"`
	Data     *DataComparison   `json:"data_comparison,omitempty"`

	Errors       []Error `json:"errors"`
	OverallMatch bool    `json:"overall_match"`
}

// OverallMatch is true if no error was recorded and every section was
// produced and matched, with row count differences allowed when negligible.
func OverallMatch(r ComparisonReport) bool {
	return len(r.Errors) == 0 &&
		r.Schema != nil && r.Schema.Match &&
		r.RowCount != nil && r.RowCount.Acceptable() &&
		r.Data != nil && r.Data.DataMatch
}

// Builder accumulates report sections during a comparison.
type Builder struct {
	r ComparisonReport
}

func NewBuilder(h Header) *Builder {
	return &Builder{r: ComparisonReport{Header: h}}
}

func (b *Builder) SetSchema(res colmap.Result) {
	b.r.Schema = &SchemaComparison{
		Match:              res.SchemaMatch(),
		SourceColumns:      res.SourceColumnCount,
		WarehouseColumns:   res.WarehouseColumnCount,
		CommonColumns:      res.Common,
		MissingInWarehouse: res.MissingInWarehouse,
		ExtraInWarehouse:   res.ExtraInWarehouse,
		TypeMismatches:     res.TypeMismatches,
		FuzzyMatches:       columnMatches(res.FuzzyMatches),
		Suggestions:        columnMatches(res.Suggestions),
		MappingStats:       res.Stats,
	}
}

func (b *Builder) SetRowCount(res rowcount.Result) {
	b.r.RowCount = &res
}

func (b *Builder) SetSampling(sel sampling.Selection) {
	lowSrc, lowWh := sel.Rows.LowRetrieval()
	b.r.Sampling = &Sampling{
		RequestedMethod: string(sel.Requested),
		Method:          string(sel.Used),
		FallbackReason:  sel.FallbackReason,
		SampleSize:      sel.SampleSize,
		KeyUniverseSize: sel.KeyUniverseSize,
		Seed:            sel.Seed,
		Batches:         sel.Rows.Batches,
		BatchCounts:     sel.Rows.BatchCounts,
		OneSidedBatches: sel.Rows.OneSided,
		SourceRows:      sel.Rows.SourceRows,
		WarehouseRows:   sel.Rows.WarehouseRows,
		LowRetrieval:    lowSrc || lowWh,
	}
}

func (b *Builder) SetData(res datadiff.Result) {
	var differing []rowset.KeyTuple
	for _, m := range res.Mismatching {
		differing = append(differing, m.Key)
	}
	b.r.Data = &DataComparison{
		RowsCompared:           res.SourceRows,
		WarehouseRows:          res.WarehouseRows,
		MatchedRows:            res.MatchedRows,
		MissingInWarehouse:     len(res.Missing),
		ExtraInWarehouse:       len(res.Extra),
		RowsWithDifferences:    len(res.Mismatching),
		ColumnsCompared:        res.ColumnsCompared,
		ColumnsWithDifferences: res.ColumnsWithDifferences,
		ColumnDifferences:      res.ColumnDifferences,
		TypeLabelOnlyColumns:   res.TypeLabelOnlyColumns,
		CoercedKeyColumns:      res.CoercedKeyColumns,
		CoercedColumns:         res.CoercedColumns,
		DuplicateKeys:          res.DuplicateSourceKeys > 0 || res.DuplicateWarehouseKeys > 0,
		MatchRate:              res.MatchRate(),
		DataMatch:              res.DataMatch(),
		MissingKeys:            examples(res.Missing),
		ExtraKeys:              examples(res.Extra),
		DifferingKeys:          examples(differing),
	}
}

// AddError records a failure. Any error makes the report a mismatch.
func (b *Builder) AddError(section string, err error) {
	b.r.Errors = append(b.r.Errors, Error{
		Section: section,
		Error:   err.Error(),
		Details: errors.FlattenDetails(err),
	})
}

// Build returns the finished report.
func (b *Builder) Build() ComparisonReport {
	r := b.r
	r.Errors = append([]Error{}, b.r.Errors...)
	r.OverallMatch = OverallMatch(r)
	return r
}
