package rowset

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// KeyTuple holds the values of the key columns, in key column order, that
// identify one logical row.
type KeyTuple []Value

// Encode returns a string that is equal for two tuples iff their values are
// equal position by position. Numeric kinds share one encoding so that
// 1, 1.0 and 1.00 align.
func (k KeyTuple) Encode() string {
	var sb strings.Builder
	for i, v := range k {
		if i > 0 {
			sb.WriteByte(',')
		}
		switch v.kind {
		case KindNull:
			sb.WriteString("z")
		case KindString:
			sb.WriteString("s")
			sb.WriteString(strconv.Quote(v.s))
		case KindInt, KindFloat, KindDecimal:
			sb.WriteString("n")
			d, err := v.decimal()
			if err != nil {
				sb.WriteString(strconv.Quote(v.Text()))
				continue
			}
			var r apd.Decimal
			r.Reduce(d)
			sb.WriteString(r.Text('f'))
		case KindBool:
			sb.WriteString("b")
			sb.WriteString(strconv.FormatBool(v.b))
		case KindTime:
			sb.WriteString("t")
			sb.WriteString(v.t.UTC().Format(time.RFC3339Nano))
		}
	}
	return sb.String()
}

func (k KeyTuple) Equal(o KeyTuple) bool {
	return len(k) == len(o) && k.Encode() == o.Encode()
}

// Strings renders each value for reporting.
func (k KeyTuple) Strings() []string {
	ret := make([]string, len(k))
	for i, v := range k {
		ret[i] = v.String()
	}
	return ret
}

func (k KeyTuple) String() string {
	return "(" + strings.Join(k.Strings(), ", ") + ")"
}
