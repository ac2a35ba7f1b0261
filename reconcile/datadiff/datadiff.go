// Package datadiff aligns the rows retrieved from both systems on their key
// columns and reports missing, extra and differing rows.
package datadiff

import (
	"fmt"

	"github.com/argodata/argo/reconcile/inconsistency"
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// RowDiff is a key present in both systems whose values differ.
type RowDiff struct {
	Key     rowset.KeyTuple
	Columns []string
}

type Result struct {
	KeyColumns      []string
	ColumnsCompared []string

	SourceRows    int
	WarehouseRows int
	// MatchedRows is the number of source rows that found a warehouse row
	// with the same key.
	MatchedRows int

	Missing     []rowset.KeyTuple
	Extra       []rowset.KeyTuple
	Mismatching []RowDiff

	// ColumnDifferences counts differing values per column.
	ColumnDifferences map[string]int
	// ColumnsWithDifferences lists, in comparison order, the columns with at
	// least one differing value.
	ColumnsWithDifferences []string
	// TypeLabelOnlyColumns have incompatible native types but no differing
	// values.
	TypeLabelOnlyColumns []string

	// CoercedKeyColumns were aligned on their text form.
	CoercedKeyColumns []string
	// CoercedColumns were compared on their text form after a type mismatch.
	CoercedColumns []string

	DuplicateSourceKeys    int
	DuplicateWarehouseKeys int
}

// DataMatch is true if no row is missing, extra or different.
func (r Result) DataMatch() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Mismatching) == 0
}

// MatchRate is the percentage of source rows found identical in the
// warehouse.
func (r Result) MatchRate() float64 {
	if r.SourceRows == 0 {
		return 0
	}
	identical := r.MatchedRows - len(r.Mismatching)
	return float64(identical) / float64(r.SourceRows) * 100
}

type opts struct {
	onlyColumns     []string
	emptyEqualsNull bool
	logger          zerolog.Logger
	reporter        inconsistency.Reporter
	target          inconsistency.Target
}

type Opt func(*opts)

// WithColumns restricts value comparison to the named columns. Key columns
// and columns absent from either table are ignored.
func WithColumns(cols []string) Opt {
	return func(o *opts) {
		o.onlyColumns = cols
	}
}

// WithEmptyEqualsNull controls whether blank strings and NULL compare equal.
// It is enabled by default.
func WithEmptyEqualsNull(b bool) Opt {
	return func(o *opts) {
		o.emptyEqualsNull = b
	}
}

func WithLogger(l zerolog.Logger) Opt {
	return func(o *opts) {
		o.logger = l
	}
}

// WithReporter sends every row finding to r.
func WithReporter(r inconsistency.Reporter, target inconsistency.Target) Opt {
	return func(o *opts) {
		o.reporter = r
		o.target = target
	}
}

// Compare aligns source and warehouse rows on keyColumns, which must name
// columns of both tables. Column names are expected to already be aligned
// between the tables.
func Compare(source, warehouse *rowset.Table, keyColumns []string, options ...Opt) (Result, error) {
	o := opts{
		emptyEqualsNull: true,
		logger:          zerolog.Nop(),
		reporter:        inconsistency.CombinedReporter{},
	}
	for _, apply := range options {
		apply(&o)
	}
	if source == nil {
		source = &rowset.Table{}
	}
	if warehouse == nil {
		warehouse = &rowset.Table{}
	}
	if len(keyColumns) == 0 {
		return Result{}, errors.AssertionFailedf("no key columns to align on")
	}

	d := &differ{opts: o, source: source, warehouse: warehouse}
	if err := d.resolve(keyColumns); err != nil {
		return Result{}, err
	}
	return d.diff(), nil
}

type compared struct {
	name    string
	srcPos  int
	whPos   int
	coerced bool
}

type differ struct {
	opts
	source, warehouse *rowset.Table

	keyColumns  []string
	srcKeyPos   []int
	whKeyPos    []int
	coerceKey   []bool
	columns     []*compared
	differences map[string]int
}

func (d *differ) resolve(keyColumns []string) error {
	var err error
	d.keyColumns = keyColumns
	if d.srcKeyPos, err = positions(d.source, keyColumns); err != nil {
		return errors.Wrap(err, "source rows")
	}
	if d.whKeyPos, err = positions(d.warehouse, keyColumns); err != nil {
		return errors.Wrap(err, "warehouse rows")
	}

	d.coerceKey = make([]bool, len(keyColumns))
	for i := range keyColumns {
		d.coerceKey[i] = d.needsKeyCoercion(d.srcKeyPos[i], d.whKeyPos[i])
	}

	isKey := make(map[string]struct{}, len(keyColumns))
	for _, p := range d.srcKeyPos {
		if p < len(d.source.Columns) {
			isKey[d.source.Columns[p].Name] = struct{}{}
		}
	}
	names := d.onlyColumns
	if names == nil {
		names = d.source.ColumnNames()
	}
	for _, name := range names {
		srcPos, whPos := d.source.ColumnIndex(name), d.warehouse.ColumnIndex(name)
		if srcPos == -1 || whPos == -1 {
			continue
		}
		if _, ok := isKey[d.source.Columns[srcPos].Name]; ok {
			continue
		}
		d.columns = append(d.columns, &compared{name: d.source.Columns[srcPos].Name, srcPos: srcPos, whPos: whPos})
	}
	d.differences = make(map[string]int)
	return nil
}

// positions resolves key columns when the table has columns. A table with no
// columns has no rows to align.
func positions(t *rowset.Table, cols []string) ([]int, error) {
	if len(t.Columns) == 0 {
		return make([]int, len(cols)), nil
	}
	return t.Positions(cols)
}

type family int

const (
	familyNone family = iota
	familyText
	familyNumber
	familyBool
	familyTime
)

func familyOf(k rowset.Kind) family {
	switch k {
	case rowset.KindString:
		return familyText
	case rowset.KindInt, rowset.KindFloat, rowset.KindDecimal:
		return familyNumber
	case rowset.KindBool:
		return familyBool
	case rowset.KindTime:
		return familyTime
	}
	return familyNone
}

// needsKeyCoercion reports whether a key column must be aligned on text:
// its native types disagree, or its values do not share one kind family.
func (d *differ) needsKeyCoercion(srcPos, whPos int) bool {
	if len(d.source.Columns) > 0 && len(d.warehouse.Columns) > 0 &&
		!rowset.TypesCompatible(d.source.Columns[srcPos].Type, d.warehouse.Columns[whPos].Type) {
		return true
	}
	seen := familyNone
	for _, side := range []struct {
		t   *rowset.Table
		pos int
	}{{d.source, srcPos}, {d.warehouse, whPos}} {
		for _, r := range side.t.Rows {
			f := familyOf(r[side.pos].Kind())
			if f == familyNone {
				continue
			}
			if seen == familyNone {
				seen = f
			} else if seen != f {
				return true
			}
		}
	}
	return false
}

func (d *differ) key(r rowset.Row, pos []int) string {
	k := make(rowset.KeyTuple, len(pos))
	for i, p := range pos {
		v := r[p]
		if d.emptyEqualsNull {
			v = nullIfBlank(v)
		}
		if d.coerceKey[i] {
			v = v.AsText()
		}
		k[i] = v
	}
	return k.Encode()
}

func original(r rowset.Row, pos []int) rowset.KeyTuple {
	k := make(rowset.KeyTuple, len(pos))
	for i, p := range pos {
		k[i] = r[p]
	}
	return k
}

func (d *differ) diff() Result {
	res := Result{
		KeyColumns:        d.keyColumns,
		SourceRows:        d.source.Len(),
		WarehouseRows:     d.warehouse.Len(),
		ColumnDifferences: d.differences,
	}
	for i, c := range d.coerceKey {
		if c {
			res.CoercedKeyColumns = append(res.CoercedKeyColumns, d.keyColumns[i])
		}
	}
	if len(res.CoercedKeyColumns) > 0 {
		d.logger.Debug().Strs("columns", res.CoercedKeyColumns).Msgf("aligning key columns as text")
	}
	for _, c := range d.columns {
		res.ColumnsCompared = append(res.ColumnsCompared, c.name)
	}

	// Warehouse rows are queued per key so duplicates pair up in order.
	whIndex := make(map[string][]int, d.warehouse.Len())
	for i, r := range d.warehouse.Rows {
		k := d.key(r, d.whKeyPos)
		if len(whIndex[k]) > 0 {
			res.DuplicateWarehouseKeys++
		}
		whIndex[k] = append(whIndex[k], i)
	}
	used := make([]bool, d.warehouse.Len())
	srcSeen := make(map[string]struct{}, d.source.Len())

	evl := &defaultRowEventListener{reporter: d.reporter, target: d.target}
	for _, r := range d.source.Rows {
		evl.OnRowScan()
		k := d.key(r, d.srcKeyPos)
		if _, ok := srcSeen[k]; ok {
			res.DuplicateSourceKeys++
		}
		srcSeen[k] = struct{}{}

		queue := whIndex[k]
		if len(queue) == 0 {
			res.Missing = append(res.Missing, original(r, d.srcKeyPos))
			evl.OnMissingRow(inconsistency.MissingRow{
				Target:     d.target,
				KeyColumns: d.keyColumns,
				KeyValues:  original(r, d.srcKeyPos),
				Columns:    d.source.ColumnNames(),
				Values:     r,
			})
			continue
		}
		whIdx := queue[0]
		whIndex[k] = queue[1:]
		used[whIdx] = true
		res.MatchedRows++

		mismatch := inconsistency.MismatchingRow{
			Target:     d.target,
			KeyColumns: d.keyColumns,
			KeyValues:  original(r, d.srcKeyPos),
		}
		whRow := d.warehouse.Rows[whIdx]
		for _, c := range d.columns {
			a, b := r[c.srcPos], whRow[c.whPos]
			if d.equal(c, a, b) {
				continue
			}
			d.differences[c.name]++
			mismatch.MismatchingColumns = append(mismatch.MismatchingColumns, c.name)
			mismatch.SourceVals = append(mismatch.SourceVals, a)
			mismatch.WarehouseVals = append(mismatch.WarehouseVals, b)
		}
		if len(mismatch.MismatchingColumns) > 0 {
			res.Mismatching = append(res.Mismatching, RowDiff{Key: mismatch.KeyValues, Columns: mismatch.MismatchingColumns})
			evl.OnMismatchingRow(mismatch)
		} else {
			evl.OnMatch()
		}
	}
	for i, r := range d.warehouse.Rows {
		if used[i] {
			continue
		}
		res.Extra = append(res.Extra, original(r, d.whKeyPos))
		evl.OnExtraneousRow(inconsistency.ExtraneousRow{
			Target:     d.target,
			KeyColumns: d.keyColumns,
			KeyValues:  original(r, d.whKeyPos),
		})
	}

	for _, c := range d.columns {
		if c.coerced {
			res.CoercedColumns = append(res.CoercedColumns, c.name)
		}
		if d.differences[c.name] > 0 {
			res.ColumnsWithDifferences = append(res.ColumnsWithDifferences, c.name)
			continue
		}
		if !rowset.TypesCompatible(d.source.Columns[c.srcPos].Type, d.warehouse.Columns[c.whPos].Type) {
			res.TypeLabelOnlyColumns = append(res.TypeLabelOnlyColumns, c.name)
		}
	}
	d.reporter.Report(inconsistency.StatusReport{
		Info: fmt.Sprintf("finished row comparison on dataset %s: %s", d.target.DatasetID, evl.stats.String()),
	})
	return res
}

// equal compares two values of column c. The first type mismatch on a column
// switches it to text comparison for all remaining rows.
func (d *differ) equal(c *compared, a, b rowset.Value) bool {
	if d.emptyEqualsNull {
		a, b = nullIfBlank(a), nullIfBlank(b)
	}
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if !c.coerced {
		eq, err := a.Equal(b)
		if err == nil {
			return eq
		}
		var tm *rowset.TypeMismatchError
		if errors.As(err, &tm) {
			tm.Column = c.name
			err = tm
		}
		d.logger.Debug().Err(err).Str("column", c.name).Msgf("comparing column as text")
		c.coerced = true
	}
	return a.Text() == b.Text()
}

func nullIfBlank(v rowset.Value) rowset.Value {
	if v.IsBlank() {
		return rowset.Null()
	}
	return v
}
