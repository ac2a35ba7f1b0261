package rowset

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
)

type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindDecimal
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) numeric() bool {
	return k == KindInt || k == KindFloat || k == KindDecimal
}

// Value is a single typed cell retrieved from either system.
// Values are immutable once constructed.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
	d    *apd.Decimal
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

func Decimal(d *apd.Decimal) Value {
	if d == nil {
		return Null()
	}
	var c apd.Decimal
	c.Set(d)
	return Value{kind: KindDecimal, d: &c}
}

// ParseDecimal parses s as an exact decimal value.
func ParseDecimal(s string) (Value, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Null(), errors.Wrapf(err, "error parsing decimal %q", s)
	}
	return Value{kind: KindDecimal, d: d}, nil
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBlank reports whether v is a string containing only whitespace.
func (v Value) IsBlank() bool {
	return v.kind == KindString && strings.TrimSpace(v.s) == ""
}

// Text returns the canonical text form of v. Null values return "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDecimal:
		var r apd.Decimal
		r.Reduce(v.d)
		return r.Text('f')
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return formatTime(v.t)
	}
	return ""
}

// AsText coerces v to a string value. Null stays null.
func (v Value) AsText() Value {
	if v.kind == KindNull || v.kind == KindString {
		return v
	}
	return String(v.Text())
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "NULL"
	}
	return v.Text()
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04:05.999999999")
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (v Value) decimal() (*apd.Decimal, error) {
	switch v.kind {
	case KindDecimal:
		return v.d, nil
	case KindInt:
		return apd.New(v.i, 0), nil
	case KindFloat:
		d := new(apd.Decimal)
		if _, err := d.SetFloat64(v.f); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, errors.AssertionFailedf("%s is not numeric", v.kind)
}

// Int64 returns v as an integer if it holds a whole number, including
// numeric text.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindString:
		if i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64); err == nil {
			return i, true
		}
		d, _, err := apd.NewFromString(strings.TrimSpace(v.s))
		if err != nil {
			return 0, false
		}
		i, err := d.Int64()
		return i, err == nil
	case KindFloat, KindDecimal:
		d, err := v.decimal()
		if err != nil {
			return 0, false
		}
		i, err := d.Int64()
		return i, err == nil
	}
	return 0, false
}

// TypeMismatchError is returned when two values cannot be compared without
// coercion.
type TypeMismatchError struct {
	Column      string
	Left, Right Kind
}

func (e *TypeMismatchError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("cannot compare %s with %s", e.Left, e.Right)
	}
	return fmt.Sprintf("cannot compare %s with %s on column %s", e.Left, e.Right, e.Column)
}

// Equal compares two values across kinds where a lossless comparison exists.
// Numeric kinds compare exactly as decimals, strings compare to times by
// parsing. Anything else returns a *TypeMismatchError.
func (v Value) Equal(o Value) (bool, error) {
	if v.kind == KindNull || o.kind == KindNull {
		return v.kind == o.kind, nil
	}
	if v.kind == o.kind {
		switch v.kind {
		case KindString:
			return v.s == o.s, nil
		case KindInt:
			return v.i == o.i, nil
		case KindFloat:
			if math.IsNaN(v.f) && math.IsNaN(o.f) {
				return true, nil
			}
			return v.f == o.f, nil
		case KindDecimal:
			return v.d.Cmp(o.d) == 0, nil
		case KindBool:
			return v.b == o.b, nil
		case KindTime:
			return v.t.Equal(o.t), nil
		}
	}
	if v.kind.numeric() && o.kind.numeric() {
		if (v.kind == KindFloat && (math.IsNaN(v.f) || math.IsInf(v.f, 0))) ||
			(o.kind == KindFloat && (math.IsNaN(o.f) || math.IsInf(o.f, 0))) {
			return false, nil
		}
		a, err := v.decimal()
		if err != nil {
			return false, err
		}
		b, err := o.decimal()
		if err != nil {
			return false, err
		}
		return a.Cmp(b) == 0, nil
	}
	switch {
	case v.kind == KindTime && o.kind == KindString:
		if t, ok := parseTime(o.s); ok {
			return v.t.Equal(t), nil
		}
	case v.kind == KindString && o.kind == KindTime:
		if t, ok := parseTime(v.s); ok {
			return t.Equal(o.t), nil
		}
	case v.kind == KindBool && o.kind == KindInt && (o.i == 0 || o.i == 1):
		return v.b == (o.i == 1), nil
	case v.kind == KindInt && o.kind == KindBool && (v.i == 0 || v.i == 1):
		return o.b == (v.i == 1), nil
	}
	return false, &TypeMismatchError{Left: v.kind, Right: o.kind}
}

// FromAny converts a value produced by a driver or decoder into a Value.
func FromAny(in any) Value {
	switch v := in.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case string:
		return String(v)
	case []byte:
		return String(string(v))
	case bool:
		return Bool(v)
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint8:
		return Int(int64(v))
	case uint16:
		return Int(int64(v))
	case uint32:
		return Int(int64(v))
	case uint64:
		if v > math.MaxInt64 {
			d, _, _ := apd.NewFromString(strconv.FormatUint(v, 10))
			return Decimal(d)
		}
		return Int(int64(v))
	case float32:
		return Float(float64(v))
	case float64:
		return Float(v)
	case time.Time:
		return Time(v)
	case *apd.Decimal:
		return Decimal(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i)
		}
		if d, err := ParseDecimal(string(v)); err == nil {
			return d
		}
		return String(string(v))
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return String(fmt.Sprint(in))
		}
		if _, ok := dv.(driver.Valuer); ok {
			return String(fmt.Sprint(dv))
		}
		return FromAny(dv)
	case fmt.Stringer:
		return String(v.String())
	}
	return String(fmt.Sprint(in))
}

// FromDriver converts a raw driver value using the database type name to
// recover numbers and booleans returned as text.
func FromDriver(typeName string, in any) Value {
	if dv, ok := in.(driver.Valuer); ok {
		v, err := dv.Value()
		if err != nil {
			return FromAny(in)
		}
		in = v
	}
	var s string
	switch v := in.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return FromAny(in)
	}
	switch ClassifyType(typeName) {
	case GroupInt:
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return Int(i)
		}
		if d, err := ParseDecimal(s); err == nil {
			return d
		}
	case GroupFloat:
		if d, err := ParseDecimal(s); err == nil {
			return d
		}
	case GroupBool:
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return Bool(b)
		}
	}
	return String(s)
}
