package dbconn

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/reconcile/querybuild"
	"github.com/argodata/argo/rowset"
	"github.com/stretchr/testify/require"
)

func TestSQLConnExecute(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	c := NewSQLConn("wh", querybuild.Snowflake, db, "ANALYTICS")
	defer func() { require.NoError(t, c.Close(context.Background())) }()

	q := `SELECT * FROM "ANALYTICS"."PUBLIC"."ORDERS"`
	mock.ExpectQuery(regexp.QuoteMeta(q)).WillReturnRows(
		sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("ORDER_ID").OfType("FIXED", int64(0)),
			sqlmock.NewColumn("AMOUNT").OfType("REAL", float64(0)),
			sqlmock.NewColumn("REGION").OfType("TEXT", ""),
		).
			AddRow("1", float64(12.5), "EU").
			AddRow("2", nil, nil),
	)
	mock.ExpectClose()

	tbl, err := c.Execute(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, []string{"ORDER_ID", "AMOUNT", "REGION"}, tbl.ColumnNames())
	require.Equal(t, "FIXED", tbl.Columns[0].Type)
	require.Len(t, tbl.Rows, 2)
	require.Equal(t, rowset.Int(1), tbl.Rows[0][0])
	require.Equal(t, rowset.Float(12.5), tbl.Rows[0][1])
	require.True(t, tbl.Rows[1][1].IsNull())
}

func TestSQLConnColumns(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		dialect  querybuild.Dialect
		database string
		table    dbtable.Name
		query    string
		args     []driver.Value
	}{
		{
			desc:     "snowflake",
			dialect:  querybuild.Snowflake,
			database: "ANALYTICS",
			table:    dbtable.Name{Table: "orders"},
			query:    `SELECT column_name, data_type FROM ANALYTICS.INFORMATION_SCHEMA.COLUMNS`,
			args:     []driver.Value{"PUBLIC", "ORDERS"},
		},
		{
			desc:     "mysql",
			dialect:  querybuild.MySQL,
			database: "shop",
			table:    dbtable.Name{Table: "orders"},
			query:    `SELECT column_name, data_type FROM information_schema.columns`,
			args:     []driver.Value{"shop", "orders"},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			c := NewSQLConn("wh", tc.dialect, db, tc.database)

			mock.ExpectQuery(regexp.QuoteMeta(tc.query)).
				WithArgs(tc.args...).
				WillReturnRows(
					sqlmock.NewRows([]string{"column_name", "data_type"}).
						AddRow("ORDER_ID", "NUMBER").
						AddRow("REGION", "TEXT"),
				)
			cols, err := c.Columns(context.Background(), tc.table)
			require.NoError(t, err)
			require.Equal(t, []rowset.Column{
				{Name: "ORDER_ID", Type: "NUMBER"},
				{Name: "REGION", Type: "TEXT"},
			}, cols)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLConnColumnsMissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	c := NewSQLConn("wh", querybuild.Snowflake, db, "ANALYTICS")
	mock.ExpectQuery("SELECT column_name").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}))
	_, err = c.Columns(context.Background(), dbtable.Name{Table: "nope"})
	require.EqualError(t, err, "table nope not found or has no columns")
}
