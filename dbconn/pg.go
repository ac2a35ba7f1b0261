package dbconn

import (
	"context"

	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/reconcile/querybuild"
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq/oid"
)

type PGConn struct {
	id ID
	*pgx.Conn
}

var _ Warehouse = (*PGConn)(nil)

func NewPGConn(id ID, conn *pgx.Conn) *PGConn {
	return &PGConn{id: id, Conn: conn}
}

func ConnectPG(ctx context.Context, id ID, connStr string) (*PGConn, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %s", redact(connStr))
	}
	if id == "" {
		id = ID(conn.Config().Host)
	}
	return NewPGConn(id, conn), nil
}

func (c *PGConn) ID() ID {
	return c.id
}

func (c *PGConn) Dialect() string {
	return querybuild.Postgres.Name()
}

func (c *PGConn) Execute(ctx context.Context, query string) (*rowset.Table, error) {
	rows, err := c.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "error running query on %s", c.id)
	}
	defer rows.Close()
	fds := rows.FieldDescriptions()
	t := &rowset.Table{Columns: make([]rowset.Column, len(fds))}
	for i, fd := range fds {
		t.Columns[i] = rowset.Column{Name: fd.Name, Type: oid.TypeName[oid.Oid(fd.DataTypeOID)]}
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		row := make(rowset.Row, len(vals))
		for i, v := range vals {
			row[i] = rowset.FromDriver(t.Columns[i].Type, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

func (c *PGConn) Columns(ctx context.Context, table dbtable.Name) ([]rowset.Column, error) {
	schema := table.Schema
	if schema == "" {
		schema = "public"
	}
	rows, err := c.Query(
		ctx,
		`SELECT column_name, data_type FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`,
		schema,
		table.Table,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "error listing columns of %s", table)
	}
	defer rows.Close()
	var ret []rowset.Column
	for rows.Next() {
		var col rowset.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, errors.Wrapf(err, "error listing columns of %s", table)
		}
		ret = append(ret, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ret) == 0 {
		return nil, errors.Newf("table %s not found or has no columns", table)
	}
	return ret, nil
}
