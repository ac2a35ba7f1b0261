// Package colmap aligns the columns of a source dataset with the columns of
// its warehouse replica.
package colmap

import (
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
)

const (
	SystemSource    = "source"
	SystemWarehouse = "warehouse"
)

// ErrMissingKeyColumn is returned when a key column is absent from either
// schema.
var ErrMissingKeyColumn = errors.New("key column missing from schema")

type TypeMismatch struct {
	Column        string `json:"column"`
	SourceType    string `json:"source_type"`
	WarehouseType string `json:"warehouse_type"`
}

type Result struct {
	Mapping *ColumnMapping `json:"-"`

	// Common lists normalized names present on both systems, in source order.
	Common             []string       `json:"common"`
	MissingInWarehouse []string       `json:"missing_in_warehouse"`
	ExtraInWarehouse   []string       `json:"extra_in_warehouse"`
	TypeMismatches     []TypeMismatch `json:"type_mismatches"`

	FuzzyMatches []FuzzyMatch `json:"fuzzy_matches,omitempty"`
	Suggestions  []FuzzyMatch `json:"suggestions,omitempty"`
	Stats        MappingStats `json:"mapping_stats"`
	Collisions   []Collision  `json:"collisions,omitempty"`

	SourceColumnCount    int `json:"source_column_count"`
	WarehouseColumnCount int `json:"warehouse_column_count"`

	foldOnly bool
}

// NormalizeName applies the naming rule the result was built with.
func (r Result) NormalizeName(name string) string {
	if r.foldOnly {
		return FoldCase(name)
	}
	return Normalize(name)
}

// SchemaMatch is true if no column is missing, extra or of a mismatching
// type.
func (r Result) SchemaMatch() bool {
	return len(r.MissingInWarehouse) == 0 &&
		len(r.ExtraInWarehouse) == 0 &&
		len(r.TypeMismatches) == 0
}

// RequireKeys normalizes the given key column names and checks both systems
// carry them.
func (r Result) RequireKeys(keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, errors.Mark(errors.Newf("no key columns given"), ErrMissingKeyColumn)
	}
	common := make(map[string]struct{}, len(r.Common))
	for _, c := range r.Common {
		common[c] = struct{}{}
	}
	ret := make([]string, len(keys))
	for i, k := range keys {
		n := r.NormalizeName(k)
		if _, ok := common[n]; !ok {
			where := SystemWarehouse
			if _, ok := r.Mapping.source[n]; !ok {
				where = SystemSource
			}
			return nil, errors.Mark(
				errors.Newf("key column %q (%s) is missing from the %s schema", k, n, where),
				ErrMissingKeyColumn,
			)
		}
		ret[i] = n
	}
	return ret, nil
}

type opts struct {
	matcher  Matcher
	foldOnly bool
}

type Opt func(*opts)

func WithMatcher(m Matcher) Opt {
	return func(o *opts) {
		o.matcher = m
	}
}

// WithTransformNames selects between full normalization (the default) and
// case folding only.
func WithTransformNames(transform bool) Opt {
	return func(o *opts) {
		o.foldOnly = !transform
	}
}

func makeOpts(in []Opt) opts {
	o := opts{matcher: ExactMatch{}}
	for _, apply := range in {
		apply(&o)
	}
	return o
}

// Reconcile builds the column mapping between the two schemas and classifies
// every normalized name as common, missing in the warehouse or extra in the
// warehouse.
func Reconcile(source, warehouse []rowset.Column, opts ...Opt) (Result, error) {
	o := makeOpts(opts)
	if len(source) == 0 {
		return Result{}, errors.Newf("source schema has no columns")
	}
	if len(warehouse) == 0 {
		return Result{}, errors.Newf("warehouse schema has no columns")
	}

	res := Result{foldOnly: o.foldOnly}
	b := newMappingBuilder()
	var srcCols, whCols []NamedColumn
	for _, c := range source {
		nc := NamedColumn{Column: c, Normalized: res.NormalizeName(c.Name)}
		if b.add(SystemSource, nc.Normalized, c.Name) {
			srcCols = append(srcCols, nc)
		}
	}
	whByName := make(map[string]NamedColumn, len(warehouse))
	for _, c := range warehouse {
		nc := NamedColumn{Column: c, Normalized: res.NormalizeName(c.Name)}
		if b.add(SystemWarehouse, nc.Normalized, c.Name) {
			whCols = append(whCols, nc)
			whByName[nc.Normalized] = nc
		}
	}

	var unmatchedSrc, unmatchedWh []NamedColumn
	srcNames := make(map[string]struct{}, len(srcCols))
	for _, c := range srcCols {
		srcNames[c.Normalized] = struct{}{}
		if _, ok := whByName[c.Normalized]; !ok {
			unmatchedSrc = append(unmatchedSrc, c)
		}
	}
	for _, c := range whCols {
		if _, ok := srcNames[c.Normalized]; !ok {
			unmatchedWh = append(unmatchedWh, c)
		}
	}

	matches := o.matcher.Match(unmatchedSrc, unmatchedWh)
	for _, m := range matches {
		if !m.Applied {
			res.Suggestions = append(res.Suggestions, m)
			continue
		}
		res.FuzzyMatches = append(res.FuzzyMatches, m)
		b.alias(m.Source.Normalized, m.Warehouse.Name)
		delete(whByName, m.Warehouse.Normalized)
		aliased := m.Warehouse
		aliased.Normalized = m.Source.Normalized
		whByName[m.Source.Normalized] = aliased
	}
	res.Stats = computeStats(len(unmatchedSrc), matches)
	res.Mapping, res.Collisions = b.build()

	for _, c := range srcCols {
		wc, ok := whByName[c.Normalized]
		if !ok {
			res.MissingInWarehouse = append(res.MissingInWarehouse, c.Normalized)
			continue
		}
		res.Common = append(res.Common, c.Normalized)
		if !rowset.TypesCompatible(c.Type, wc.Type) {
			res.TypeMismatches = append(res.TypeMismatches, TypeMismatch{
				Column:        c.Normalized,
				SourceType:    c.Type,
				WarehouseType: wc.Type,
			})
		}
	}
	for _, c := range whCols {
		n, _ := res.Mapping.NormalizedWarehouse(c.Name)
		if _, ok := srcNames[n]; !ok {
			res.ExtraInWarehouse = append(res.ExtraInWarehouse, n)
		}
	}
	res.SourceColumnCount = len(source)
	res.WarehouseColumnCount = len(warehouse)
	return res, nil
}
