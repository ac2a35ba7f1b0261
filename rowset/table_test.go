package rowset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableAppend(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		base          *Table
		other         *Table
		expected      *Table
		expectedError string
	}{
		{
			desc: "adopts columns",
			base: &Table{},
			other: &Table{
				Columns: []Column{{Name: "id"}},
				Rows:    []Row{{Int(1)}},
			},
			expected: &Table{
				Columns: []Column{{Name: "id"}},
				Rows:    []Row{{Int(1)}},
			},
		},
		{
			desc: "reorders columns",
			base: &Table{
				Columns: []Column{{Name: "id"}, {Name: "txt"}},
				Rows:    []Row{{Int(1), String("a")}},
			},
			other: &Table{
				Columns: []Column{{Name: "TXT"}, {Name: "ID"}},
				Rows:    []Row{{String("b"), Int(2)}},
			},
			expected: &Table{
				Columns: []Column{{Name: "id"}, {Name: "txt"}},
				Rows:    []Row{{Int(1), String("a")}, {Int(2), String("b")}},
			},
		},
		{
			desc: "empty result ignored",
			base: &Table{
				Columns: []Column{{Name: "id"}},
				Rows:    []Row{{Int(1)}},
			},
			other: &Table{},
			expected: &Table{
				Columns: []Column{{Name: "id"}},
				Rows:    []Row{{Int(1)}},
			},
		},
		{
			desc: "unknown column",
			base: &Table{
				Columns: []Column{{Name: "id"}},
			},
			other: &Table{
				Columns: []Column{{Name: "id"}, {Name: "other"}},
			},
			expectedError: `column "other" is not present in earlier results`,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.base.Append(tc.other)
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, tc.base)
		})
	}
}

func TestTableKeys(t *testing.T) {
	tbl := NewTable(Column{Name: "a"}, Column{Name: "b"}, Column{Name: "c"})
	require.NoError(t, tbl.AddRow(Int(1), String("x"), Null()))
	require.NoError(t, tbl.AddRow(Int(2), String("y"), Null()))
	require.Error(t, tbl.AddRow(Int(3)))

	keys, err := tbl.Keys([]string{"c", "A"})
	require.NoError(t, err)
	require.Equal(t, []KeyTuple{{Null(), Int(1)}, {Null(), Int(2)}}, keys)

	_, err = tbl.Keys([]string{"missing"})
	require.EqualError(t, err, `column "missing" not found in a, b, c`)

	renamed := tbl.WithColumnNames(strings.ToUpper)
	require.Equal(t, []string{"A", "B", "C"}, renamed.ColumnNames())
	require.Equal(t, []string{"a", "b", "c"}, tbl.ColumnNames())
	require.Equal(t, 2, renamed.Len())
}
