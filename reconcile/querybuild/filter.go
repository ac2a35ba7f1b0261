package querybuild

import (
	"fmt"
	"strings"

	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
)

// Literal renders v as a SQL literal in the given dialect. Null renders as
// NULL.
func Literal(d Dialect, v rowset.Value) string {
	switch v.Kind() {
	case rowset.KindNull:
		return "NULL"
	case rowset.KindString, rowset.KindTime:
		return d.QuoteString(v.Text())
	case rowset.KindBool:
		if d.QuoteNumerics() {
			return d.QuoteString(v.Text())
		}
		return strings.ToUpper(v.Text())
	}
	if d.QuoteNumerics() {
		return d.QuoteString(v.Text())
	}
	return v.Text()
}

// BuildFilter returns a boolean expression selecting exactly the rows
// identified by keys. columns are the dialect-native key column names, in key
// order.
//
// A single key column produces an IN list. Multiple key columns produce a
// disjunction of per-row conjunctions, since tuple IN lists are not portable.
// NULL keys use IS NULL. Blank strings match themselves, the empty string and
// NULL so that systems which disagree on empty versus missing still align.
func BuildFilter(d Dialect, columns []string, keys []rowset.KeyTuple) (string, error) {
	if len(columns) == 0 {
		return "", errors.AssertionFailedf("no key columns to filter on")
	}
	if len(keys) == 0 {
		return "", errors.AssertionFailedf("no keys to filter on")
	}
	for _, k := range keys {
		if len(k) != len(columns) {
			return "", errors.AssertionFailedf(
				"key %s has %d values, expected %d", k, len(k), len(columns),
			)
		}
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}
	if len(columns) == 1 {
		return singleColumnFilter(d, quoted[0], keys), nil
	}
	return multiColumnFilter(d, quoted, keys), nil
}

func singleColumnFilter(d Dialect, col string, keys []rowset.KeyTuple) string {
	var lits []string
	seen := make(map[string]struct{}, len(keys))
	matchNull := false
	add := func(lit string) {
		if _, ok := seen[lit]; ok {
			return
		}
		seen[lit] = struct{}{}
		lits = append(lits, lit)
	}
	for _, k := range keys {
		v := k[0]
		switch {
		case v.IsNull():
			matchNull = true
		case v.IsBlank():
			matchNull = true
			add(Literal(d, v))
			add(d.QuoteString(""))
		default:
			add(Literal(d, v))
		}
	}
	isNull := col + " IS NULL"
	if len(lits) == 0 {
		return isNull
	}
	in := fmt.Sprintf("%s IN (%s)", col, strings.Join(lits, ", "))
	if matchNull {
		return "(" + in + " OR " + isNull + ")"
	}
	return in
}

func multiColumnFilter(d Dialect, cols []string, keys []rowset.KeyTuple) string {
	var disjuncts []string
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		conj := make([]string, len(cols))
		for i, v := range k {
			switch {
			case v.IsNull():
				conj[i] = cols[i] + " IS NULL"
			case v.IsBlank():
				conj[i] = blankDisjunction(d, cols[i], v)
			default:
				conj[i] = fmt.Sprintf("%s = %s", cols[i], Literal(d, v))
			}
		}
		expr := "(" + strings.Join(conj, " AND ") + ")"
		if _, ok := seen[expr]; ok {
			continue
		}
		seen[expr] = struct{}{}
		disjuncts = append(disjuncts, expr)
	}
	return strings.Join(disjuncts, " OR ")
}

func blankDisjunction(d Dialect, col string, v rowset.Value) string {
	empty := d.QuoteString("")
	terms := []string{col + " = " + empty, col + " IS NULL"}
	if lit := Literal(d, v); lit != empty {
		terms = append([]string{col + " = " + lit}, terms...)
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}

func columnList(d Dialect, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// SelectWhere selects every column of the rows matching filter.
func SelectWhere(d Dialect, table dbtable.Name, filter string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE %s", d.TableRef(table), filter)
}

// SelectDistinct selects every distinct combination of columns.
func SelectDistinct(d Dialect, table dbtable.Name, columns []string) string {
	return fmt.Sprintf("SELECT DISTINCT %s FROM %s", columnList(d, columns), d.TableRef(table))
}

// SelectOrderedKeys selects the first limit distinct key combinations in
// ascending key order.
func SelectOrderedKeys(d Dialect, table dbtable.Name, columns []string, limit int) string {
	cols := columnList(d, columns)
	return fmt.Sprintf(
		"SELECT DISTINCT %s FROM %s ORDER BY %s LIMIT %d",
		cols, d.TableRef(table), cols, limit,
	)
}

func SelectCount(d Dialect, table dbtable.Name) string {
	return fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", d.TableRef(table))
}
