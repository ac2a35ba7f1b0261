package rowset

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) Value {
	v, err := ParseDecimal(s)
	require.NoError(t, err)
	return v
}

func TestValueEqual(t *testing.T) {
	ts := time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC)
	for _, tc := range []struct {
		desc          string
		a, b          Value
		expected      bool
		expectedError string
	}{
		{desc: "nulls", a: Null(), b: Null(), expected: true},
		{desc: "null vs string", a: Null(), b: String(""), expected: false},
		{desc: "strings", a: String("abc"), b: String("abc"), expected: true},
		{desc: "different strings", a: String("abc"), b: String("abd"), expected: false},
		{desc: "int vs decimal", a: Int(12), b: mustDecimal(t, "12.00"), expected: true},
		{desc: "float vs decimal", a: Float(12.5), b: mustDecimal(t, "12.50"), expected: true},
		{desc: "float vs int", a: Float(3.1), b: Int(3), expected: false},
		{desc: "time vs string", a: Time(ts), b: String("2023-04-05T06:07:08"), expected: true},
		{desc: "string vs time", a: String("2023-04-05 06:07:08"), b: Time(ts), expected: true},
		{desc: "bool vs int", a: Bool(true), b: Int(1), expected: true},
		{
			desc:          "string vs int",
			a:             String("12"),
			b:             Int(12),
			expectedError: "cannot compare string with int",
		},
		{
			desc:          "unparseable time",
			a:             Time(ts),
			b:             String("yesterday"),
			expectedError: "cannot compare time with string",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			eq, err := tc.a.Equal(tc.b)
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
				var tm *TypeMismatchError
				require.ErrorAs(t, err, &tm)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, eq)
		})
	}
}

func TestValueText(t *testing.T) {
	for _, tc := range []struct {
		v        Value
		expected string
	}{
		{v: Null(), expected: ""},
		{v: String("a'b"), expected: "a'b"},
		{v: Int(-42), expected: "-42"},
		{v: Float(0.1), expected: "0.1"},
		{v: mustDecimal(t, "12.500"), expected: "12.5"},
		{v: Bool(false), expected: "false"},
		{v: Time(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)), expected: "2023-01-02"},
		{v: Time(time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)), expected: "2023-01-02 03:04:05"},
	} {
		t.Run(fmt.Sprintf("%s_%s", tc.v.Kind(), tc.expected), func(t *testing.T) {
			require.Equal(t, tc.expected, tc.v.Text())
		})
	}
	require.Equal(t, "NULL", Null().String())
	require.True(t, Null().AsText().IsNull())
	require.Equal(t, KindString, Int(4).AsText().Kind())
}

func TestFromAny(t *testing.T) {
	require.Equal(t, KindNull, FromAny(nil).Kind())
	require.Equal(t, Int(7), FromAny(int32(7)))
	require.Equal(t, String("x"), FromAny([]byte("x")))
	require.Equal(t, Int(10), FromAny(json.Number("10")))
	require.Equal(t, KindDecimal, FromAny(json.Number("10.25")).Kind())
	require.Equal(t, Bool(true), FromAny(true))
}

func TestFromDriver(t *testing.T) {
	for _, tc := range []struct {
		typeName string
		in       any
		kind     Kind
		text     string
	}{
		{typeName: "FIXED", in: "12", kind: KindInt, text: "12"},
		{typeName: "FIXED", in: "12.50", kind: KindDecimal, text: "12.5"},
		{typeName: "DECIMAL", in: []byte("1.25"), kind: KindDecimal, text: "1.25"},
		{typeName: "VARCHAR", in: []byte("007"), kind: KindString, text: "007"},
		{typeName: "BOOLEAN", in: "true", kind: KindBool, text: "true"},
		{typeName: "", in: int64(3), kind: KindInt, text: "3"},
	} {
		t.Run(fmt.Sprintf("%s_%v", tc.typeName, tc.in), func(t *testing.T) {
			v := FromDriver(tc.typeName, tc.in)
			require.Equal(t, tc.kind, v.Kind())
			require.Equal(t, tc.text, v.Text())
		})
	}
}

func TestClassifyType(t *testing.T) {
	for _, tc := range []struct {
		typeName string
		expected TypeGroup
	}{
		{typeName: "STRING", expected: GroupText},
		{typeName: "varchar(16777216)", expected: GroupText},
		{typeName: "LONG", expected: GroupInt},
		{typeName: "NUMBER(38,0)", expected: GroupInt},
		{typeName: "NUMBER(38,2)", expected: GroupFloat},
		{typeName: "DOUBLE", expected: GroupFloat},
		{typeName: "TIMESTAMP_NTZ", expected: GroupDatetime},
		{typeName: "timestamp with time zone", expected: GroupDatetime},
		{typeName: "BOOLEAN", expected: GroupBool},
		{typeName: "VARIANT", expected: GroupUnknown},
		{typeName: "", expected: GroupUnknown},
	} {
		t.Run(tc.typeName, func(t *testing.T) {
			require.Equal(t, tc.expected, ClassifyType(tc.typeName))
		})
	}
	require.True(t, TypesCompatible("LONG", "NUMBER"))
	require.False(t, TypesCompatible("STRING", "NUMBER"))
	require.True(t, TypesCompatible("VARIANT", "NUMBER"))
}

func TestKeyTupleEncode(t *testing.T) {
	require.True(t, KeyTuple{Int(1), String("a")}.Equal(KeyTuple{mustDecimal(t, "1.0"), String("a")}))
	require.False(t, KeyTuple{Int(1)}.Equal(KeyTuple{String("1")}))
	require.False(t, KeyTuple{Null()}.Equal(KeyTuple{String("")}))
	require.Equal(t, "(1, NULL)", KeyTuple{Int(1), Null()}.String())
}
