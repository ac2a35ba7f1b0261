package rowset

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Column is a column name together with its native type label.
type Column struct {
	Name string
	Type string
}

type Row []Value

// Table is a set of rows retrieved from one system. It is rebuilt for every
// comparison and never persisted.
type Table struct {
	Columns []Column
	Rows    []Row
}

func NewTable(columns ...Column) *Table {
	return &Table{Columns: columns}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) ColumnNames() []string {
	ret := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		ret[i] = c.Name
	}
	return ret
}

// ColumnIndex returns the position of the named column, or -1. An exact match
// is preferred over a case-insensitive one.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// AddRow appends a row, which must have one value per column.
func (t *Table) AddRow(vals ...Value) error {
	if len(vals) != len(t.Columns) {
		return errors.AssertionFailedf("expected %d values, got %d", len(t.Columns), len(vals))
	}
	t.Rows = append(t.Rows, vals)
	return nil
}

// Append concatenates the rows of o onto t. Columns are matched by name; a
// table without columns adopts the columns of o. Columns missing from o are
// filled with nulls.
func (t *Table) Append(o *Table) error {
	if o == nil || (len(o.Columns) == 0 && len(o.Rows) == 0) {
		return nil
	}
	if len(t.Columns) == 0 && len(t.Rows) == 0 {
		t.Columns = append([]Column(nil), o.Columns...)
	}
	positions := make([]int, len(t.Columns))
	sameLayout := len(t.Columns) == len(o.Columns)
	for i, c := range t.Columns {
		positions[i] = o.ColumnIndex(c.Name)
		if positions[i] != i {
			sameLayout = false
		}
	}
	for _, c := range o.Columns {
		if t.ColumnIndex(c.Name) == -1 {
			return errors.Newf("column %q is not present in earlier results", c.Name)
		}
	}
	for _, r := range o.Rows {
		if sameLayout {
			t.Rows = append(t.Rows, r)
			continue
		}
		row := make(Row, len(t.Columns))
		for i, p := range positions {
			if p >= 0 && p < len(r) {
				row[i] = r[p]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return nil
}

// WithColumnNames returns a shallow copy of t whose columns are renamed by fn.
// Rows are shared with t.
func (t *Table) WithColumnNames(fn func(string) string) *Table {
	cols := make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = Column{Name: fn(c.Name), Type: c.Type}
	}
	return &Table{Columns: cols, Rows: t.Rows}
}

// Key extracts the key tuple of a row given the positions of the key columns.
func (t *Table) Key(r Row, positions []int) KeyTuple {
	k := make(KeyTuple, len(positions))
	for i, p := range positions {
		k[i] = r[p]
	}
	return k
}

// Keys extracts every row's key tuple for the named columns.
func (t *Table) Keys(columns []string) ([]KeyTuple, error) {
	positions, err := t.Positions(columns)
	if err != nil {
		return nil, err
	}
	ret := make([]KeyTuple, len(t.Rows))
	for i, r := range t.Rows {
		ret[i] = t.Key(r, positions)
	}
	return ret, nil
}

// Positions resolves column names to their indexes.
func (t *Table) Positions(columns []string) ([]int, error) {
	ret := make([]int, len(columns))
	for i, c := range columns {
		ret[i] = t.ColumnIndex(c)
		if ret[i] == -1 {
			return nil, errors.Newf("column %q not found in %s", c, strings.Join(t.ColumnNames(), ", "))
		}
	}
	return ret, nil
}
