package reconcile

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/argodata/argo/dbconn"
	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/reconcile/inconsistency"
	"github.com/argodata/argo/reconcile/report"
	"github.com/argodata/argo/reconcile/sampling"
	"github.com/argodata/argo/rowset"
	"github.com/argodata/argo/store"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var ordersTarget = Target{
	DatasetID:  "ds-1",
	Table:      dbtable.Name{Database: "ANALYTICS", Schema: "PUBLIC", Table: "ORDERS"},
	KeyColumns: []string{"id"},
}

func countTable(n int) *rowset.Table {
	t := rowset.NewTable(rowset.Column{Name: "row_count", Type: "LONG"})
	_ = t.AddRow(rowset.Int(int64(n)))
	return t
}

func regionTable(cols []rowset.Column, n int, region func(i int) string) *rowset.Table {
	t := rowset.NewTable(cols...)
	for i := 1; i <= n; i++ {
		_ = t.AddRow(rowset.Int(int64(i)), rowset.String(region(i)))
	}
	return t
}

// matching returns the rows of t selected by a generated query. Queries are
// assumed to filter on the first column.
func matching(t *rowset.Table, query string) *rowset.Table {
	ret := rowset.NewTable(t.Columns...)
	if i := strings.Index(query, " LIMIT "); i != -1 {
		n, err := strconv.Atoi(query[i+len(" LIMIT "):])
		if err != nil {
			panic(err)
		}
		for j := 0; j < n && j < t.Len(); j++ {
			_ = ret.AddRow(t.Rows[j]...)
		}
		return ret
	}
	start := strings.Index(query, " IN (")
	if start == -1 {
		return t
	}
	list := query[start+len(" IN ("):]
	list = list[:strings.Index(list, ")")]
	ids := make(map[string]struct{})
	for _, lit := range strings.Split(list, ",") {
		ids[strings.Trim(strings.TrimSpace(lit), "'")] = struct{}{}
	}
	for _, r := range t.Rows {
		if _, ok := ids[r[0].Text()]; ok {
			_ = ret.AddRow(r...)
		}
	}
	return ret
}

type fixture struct {
	source    *dbconn.FakeSource
	warehouse *dbconn.FakeWarehouse
	srcRows   *rowset.Table
	whRows    *rowset.Table
}

func newFixture(n int, whRegion func(i int) string) *fixture {
	srcCols := []rowset.Column{{Name: "id", Type: "LONG"}, {Name: "Region", Type: "STRING"}}
	whCols := []rowset.Column{{Name: "ID", Type: "NUMBER(38,0)"}, {Name: "REGION", Type: "VARCHAR"}}
	f := &fixture{
		source:    dbconn.NewFakeSource("api.domo.com"),
		warehouse: dbconn.NewFakeWarehouse("acme"),
		srcRows:   regionTable(srcCols, n, func(int) string { return "east" }),
		whRows:    regionTable(whCols, n, whRegion),
	}
	f.source.SchemaColumns = srcCols
	f.warehouse.TableColumns = whCols
	f.source.ExecuteFn = func(ctx context.Context, datasetID string, query string) (*rowset.Table, error) {
		if strings.HasPrefix(query, "SELECT COUNT") {
			return countTable(f.srcRows.Len()), nil
		}
		return matching(f.srcRows, query), nil
	}
	f.source.DistinctKeysFn = func(ctx context.Context, datasetID string, keyColumns []string) (*rowset.Table, error) {
		t := rowset.NewTable(rowset.Column{Name: "id", Type: "LONG"})
		for _, r := range f.srcRows.Rows {
			_ = t.AddRow(r[0])
		}
		return t, nil
	}
	f.warehouse.ExecuteFn = func(ctx context.Context, query string) (*rowset.Table, error) {
		if strings.HasPrefix(query, "SELECT COUNT") {
			return countTable(f.whRows.Len()), nil
		}
		return matching(f.whRows, query), nil
	}
	return f
}

func (f *fixture) conns() dbconn.Conns {
	return dbconn.Conns{Source: f.source, Warehouse: f.warehouse}
}

func TestReconcileMatch(t *testing.T) {
	f := newFixture(30, func(int) string { return "east" })
	r, err := Reconcile(context.Background(), f.conns(), zerolog.Nop(), inconsistency.CombinedReporter{}, ordersTarget)
	require.NoError(t, err)
	require.Empty(t, r.Errors)
	require.True(t, r.OverallMatch)
	require.Equal(t, "api.domo.com", r.SourceID)
	require.Equal(t, "acme", r.WarehouseID)
	require.Equal(t, "ANALYTICS.PUBLIC.ORDERS", r.Table)
	require.NotEmpty(t, r.SessionID)

	require.True(t, r.Schema.Match)
	require.True(t, r.RowCount.Match)
	require.Equal(t, "random", r.Sampling.Method)
	require.Equal(t, 30, r.Sampling.SampleSize)
	require.Equal(t, 30, r.Sampling.KeyUniverseSize)
	require.Equal(t, 1, r.Sampling.Batches)
	require.Equal(t, 30, r.Data.RowsCompared)
	require.Equal(t, 30, r.Data.MatchedRows)
	require.Equal(t, []string{"REGION"}, r.Data.ColumnsCompared)
}

func TestReconcileValueDifference(t *testing.T) {
	f := newFixture(30, func(i int) string {
		if i == 7 {
			return "west"
		}
		return "east"
	})
	var rep inconsistency.CollectingReporter
	sess := NewSession()
	r, err := Reconcile(
		context.Background(),
		f.conns(),
		zerolog.Nop(),
		&rep,
		ordersTarget,
		WithSession(sess),
		WithBatchSize(10),
	)
	require.NoError(t, err)
	require.Empty(t, r.Errors)
	require.False(t, r.OverallMatch)
	require.Equal(t, sess.ID.String(), r.SessionID)
	require.Equal(t, 3, r.Sampling.Batches)
	require.Equal(t, 1, r.Data.RowsWithDifferences)
	require.Equal(t, [][]string{{"7"}}, r.Data.DifferingKeys)
	require.Equal(t, []string{"REGION"}, r.Data.ColumnsWithDifferences)

	var mismatches []inconsistency.MismatchingRow
	for _, o := range rep.Objects() {
		if m, ok := o.(inconsistency.MismatchingRow); ok {
			mismatches = append(mismatches, m)
		}
	}
	require.Len(t, mismatches, 1)
	require.Equal(t, []string{"REGION"}, mismatches[0].MismatchingColumns)
	require.Equal(t, "ds-1", mismatches[0].DatasetID)
}

func TestReconcileSchemaFindings(t *testing.T) {
	f := newFixture(5, func(int) string { return "east" })
	f.warehouse.TableColumns = append(f.warehouse.TableColumns, rowset.Column{Name: "LOADED_AT", Type: "TIMESTAMP_NTZ"})
	var rep inconsistency.CollectingReporter
	r, err := Reconcile(context.Background(), f.conns(), zerolog.Nop(), &rep, ordersTarget)
	require.NoError(t, err)
	require.False(t, r.Schema.Match)
	require.Equal(t, []string{"LOADED_AT"}, r.Schema.ExtraInWarehouse)
	require.False(t, r.OverallMatch)

	var extra []inconsistency.ExtraneousColumn
	for _, o := range rep.Objects() {
		if c, ok := o.(inconsistency.ExtraneousColumn); ok {
			extra = append(extra, c)
		}
	}
	require.Equal(t, []inconsistency.ExtraneousColumn{{
		Target:     inconsistency.Target{DatasetID: "ds-1", Table: ordersTarget.Table},
		Normalized: "LOADED_AT",
		Column:     "LOADED_AT",
		Type:       "TIMESTAMP_NTZ",
	}}, extra)
}

func TestReconcileFailures(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		mutate  func(f *fixture)
		target  Target
		opts    []Opt
		section string
		errMsg  string
	}{
		{
			desc: "source schema unavailable",
			mutate: func(f *fixture) {
				f.source.SchemaErr = errors.New("401 unauthorized")
			},
			section: report.SectionSchema,
			errMsg:  "401 unauthorized",
		},
		{
			desc:    "missing key column",
			target:  Target{DatasetID: "ds-1", Table: ordersTarget.Table, KeyColumns: []string{"customer_id"}},
			section: report.SectionSchema,
			errMsg:  `key column "customer_id" (CUSTOMER_ID) is missing from the source schema`,
		},
		{
			desc: "warehouse returns nothing",
			mutate: func(f *fixture) {
				f.whRows = rowset.NewTable(f.whRows.Columns...)
				f.warehouse.ExecuteFn = func(ctx context.Context, query string) (*rowset.Table, error) {
					if strings.HasPrefix(query, "SELECT COUNT") {
						return countTable(30), nil
					}
					return f.whRows, nil
				}
			},
			opts:    []Opt{WithSamplingMethod(sampling.MethodRandom, false)},
			section: report.SectionSampling,
			errMsg:  "FIRST BATCH FAILURE - no data returned from warehouse",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			f := newFixture(30, func(int) string { return "east" })
			if tc.mutate != nil {
				tc.mutate(f)
			}
			target := ordersTarget
			if tc.target.DatasetID != "" {
				target = tc.target
			}
			r, err := Reconcile(context.Background(), f.conns(), zerolog.Nop(), inconsistency.CombinedReporter{}, target, tc.opts...)
			require.NoError(t, err)
			require.False(t, r.OverallMatch)
			require.Len(t, r.Errors, 1)
			require.Equal(t, tc.section, r.Errors[0].Section)
			require.Contains(t, r.Errors[0].Error, tc.errMsg)
			require.Nil(t, r.Data)
		})
	}
}

func TestReconcileRowCountFailure(t *testing.T) {
	f := newFixture(30, func(int) string { return "east" })
	inner := f.warehouse.ExecuteFn
	f.warehouse.ExecuteFn = func(ctx context.Context, query string) (*rowset.Table, error) {
		if strings.HasPrefix(query, "SELECT COUNT") {
			return nil, errors.New("warehouse suspended")
		}
		return inner(ctx, query)
	}
	r, err := Reconcile(context.Background(), f.conns(), zerolog.Nop(), inconsistency.CombinedReporter{}, ordersTarget)
	require.NoError(t, err)
	require.Len(t, r.Errors, 1)
	require.Equal(t, report.SectionRowCount, r.Errors[0].Section)
	require.Nil(t, r.RowCount)
	// Sampling still runs with the sample size of an unknown population.
	require.Equal(t, 385, r.Sampling.SampleSize)
	require.Equal(t, 30, r.Data.RowsCompared)
	require.True(t, r.Data.DataMatch)
}

func TestReconcileEmptySource(t *testing.T) {
	f := newFixture(0, func(int) string { return "east" })
	r, err := Reconcile(context.Background(), f.conns(), zerolog.Nop(), inconsistency.CombinedReporter{}, ordersTarget)
	require.NoError(t, err)
	require.Empty(t, r.Errors)
	require.Nil(t, r.Sampling)
	require.Equal(t, 0, r.Data.RowsCompared)
	require.True(t, r.OverallMatch)
	for _, q := range f.source.Queries() {
		require.True(t, strings.HasPrefix(q, "SELECT COUNT"), q)
	}
}

func TestReconcileOrderedWithDebugExport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewLocalStore(zerolog.Nop(), dir)
	require.NoError(t, err)
	f := newFixture(12, func(int) string { return "east" })
	r, err := Reconcile(
		context.Background(),
		f.conns(),
		zerolog.Nop(),
		inconsistency.CombinedReporter{},
		ordersTarget,
		WithSamplingMethod(sampling.MethodOrdered, false),
		WithSampleSize(5),
		WithDebugStore(st),
	)
	require.NoError(t, err)
	require.Equal(t, "ordered", r.Sampling.Method)
	require.Equal(t, 5, r.Data.RowsCompared)
	require.Contains(t, f.source.Queries(), "SELECT DISTINCT id FROM table ORDER BY id LIMIT 5")

	matches, err := filepath.Glob(filepath.Join(dir, "debug", "*", "ANALYTICS.PUBLIC.ORDERS_*"))
	require.NoError(t, err)
	require.Len(t, matches, 3)
}

func TestReconcileInvalidTarget(t *testing.T) {
	f := newFixture(1, func(int) string { return "east" })
	_, err := Reconcile(context.Background(), f.conns(), zerolog.Nop(), inconsistency.CombinedReporter{}, Target{DatasetID: "ds-1"})
	require.Error(t, err)
}
