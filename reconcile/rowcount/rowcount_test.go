package rowcount

import (
	"context"
	"strings"
	"testing"

	"github.com/argodata/argo/dbconn"
	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/rowset"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	for _, tc := range []struct {
		desc       string
		source     int64
		warehouse  int64
		match      bool
		negligible bool
		reason     string
	}{
		{desc: "both empty", match: true, negligible: true, reason: "Both datasets are empty"},
		{desc: "one empty", source: 5, reason: "One dataset is empty"},
		{desc: "equal", source: 42, warehouse: 42, match: true, negligible: true, reason: "Very small absolute difference (0 rows)"},
		{desc: "small absolute", source: 500, warehouse: 490, negligible: true, reason: "Very small absolute difference (10 rows)"},
		{
			desc:       "small percentage",
			source:     2000000,
			warehouse:  1998800,
			negligible: true,
			reason:     "Very small percentage difference (0.060%)",
		},
		{
			desc:       "large dataset",
			source:     100000,
			warehouse:  100090,
			negligible: true,
			reason:     "Very small percentage difference (0.090%)",
		},
		{
			desc:       "one percent of a large dataset",
			source:     20000,
			warehouse:  19850,
			negligible: true,
			reason:     "Small percentage difference for large dataset (0.750%)",
		},
		{
			desc:      "one percent of a small dataset",
			source:    5000,
			warehouse: 4960,
			reason:    "Significant difference: 40 rows (0.800%)",
		},
		{desc: "significant", source: 50, warehouse: 65, reason: "Significant difference: 15 rows (23.077%)"},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			res := Analyze(tc.source, tc.warehouse, DefaultPolicy())
			require.Equal(t, tc.match, res.Match)
			require.Equal(t, tc.negligible, res.Analysis.IsNegligible)
			require.Equal(t, tc.reason, res.Analysis.Reason)
			require.Equal(t, tc.match || tc.negligible, res.Acceptable())
		})
	}
}

func countTable(v rowset.Value) *rowset.Table {
	t := rowset.NewTable(rowset.Column{Name: "row_count"})
	_ = t.AddRow(v)
	return t
}

func TestCompare(t *testing.T) {
	src := dbconn.NewFakeSource("src")
	src.ExecuteFn = func(ctx context.Context, datasetID string, query string) (*rowset.Table, error) {
		return countTable(rowset.Int(100000)), nil
	}
	wh := dbconn.NewFakeWarehouse("wh")
	wh.ExecuteFn = func(ctx context.Context, query string) (*rowset.Table, error) {
		return countTable(rowset.String("100090")), nil
	}
	res, err := Compare(
		context.Background(),
		dbconn.Conns{Source: src, Warehouse: wh},
		"ds-1",
		dbtable.Name{Database: "ANALYTICS", Schema: "PUBLIC", Table: "ORDERS"},
		DefaultPolicy(),
	)
	require.NoError(t, err)
	require.Equal(t, int64(100000), res.SourceCount)
	require.Equal(t, int64(100090), res.WarehouseCount)
	require.Equal(t, int64(90), res.Difference)
	require.False(t, res.Match)
	require.True(t, res.Acceptable())
	require.Equal(t, []string{"SELECT COUNT(*) AS row_count FROM table"}, src.Queries())
	require.Equal(t, []string{`SELECT COUNT(*) AS row_count FROM ANALYTICS.PUBLIC.ORDERS`}, wh.Queries())
}

func TestCompareBadCount(t *testing.T) {
	src := dbconn.NewFakeSource("src")
	src.ExecuteFn = func(ctx context.Context, datasetID string, query string) (*rowset.Table, error) {
		return countTable(rowset.String("many")), nil
	}
	_, err := Compare(
		context.Background(),
		dbconn.Conns{Source: src, Warehouse: dbconn.NewFakeWarehouse("wh")},
		"ds-1",
		dbtable.Name{Table: "ORDERS"},
		DefaultPolicy(),
	)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "count many is not a whole number"), err.Error())
}
