package dbconn

import (
	"context"
	"strings"

	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
)

type ID string

// Source is the query capability of the platform datasets are replicated
// from. Queries address the dataset as "table".
type Source interface {
	ID() ID
	// Dialect names the querybuild dialect queries must be written in.
	Dialect() string
	Execute(ctx context.Context, datasetID string, query string) (*rowset.Table, error)
	// DistinctKeys returns every distinct combination of the given native
	// key columns.
	DistinctKeys(ctx context.Context, datasetID string, keyColumns []string) (*rowset.Table, error)
	Schema(ctx context.Context, datasetID string) ([]rowset.Column, error)
	Close(ctx context.Context) error
}

// Warehouse is the query capability of the system datasets are replicated
// into.
type Warehouse interface {
	ID() ID
	Dialect() string
	Execute(ctx context.Context, query string) (*rowset.Table, error)
	Columns(ctx context.Context, table dbtable.Name) ([]rowset.Column, error)
	Close(ctx context.Context) error
}

// Conns holds both sides of a comparison.
type Conns struct {
	Source    Source
	Warehouse Warehouse
}

func (c Conns) Close(ctx context.Context) error {
	var err error
	if c.Source != nil {
		err = errors.CombineErrors(err, c.Source.Close(ctx))
	}
	if c.Warehouse != nil {
		err = errors.CombineErrors(err, c.Warehouse.Close(ctx))
	}
	return err
}

func scheme(connStr string) (string, error) {
	if len(connStr) == 0 {
		return "", errors.Newf("empty connection string")
	}
	before := strings.SplitN(connStr, "://", 2)
	if len(before) < 2 {
		return "", errors.Newf("connection string %q has no scheme", redact(connStr))
	}
	return strings.ToLower(before[0]), nil
}

// ConnectSource connects to a source by URL scheme.
func ConnectSource(ctx context.Context, id ID, connStr string) (Source, error) {
	s, err := scheme(connStr)
	if err != nil {
		return nil, err
	}
	switch s {
	case "domo":
		return ConnectDomo(ctx, id, connStr)
	}
	return nil, errors.Newf("unrecognised source scheme %s", s)
}

// ConnectWarehouse connects to a warehouse by URL scheme.
func ConnectWarehouse(ctx context.Context, id ID, connStr string) (Warehouse, error) {
	s, err := scheme(connStr)
	if err != nil {
		return nil, err
	}
	switch {
	case s == "snowflake":
		return ConnectSnowflake(ctx, id, connStr)
	case strings.Contains(s, "postgres"):
		return ConnectPG(ctx, id, connStr)
	case strings.Contains(s, "mysql"):
		return ConnectMySQL(ctx, id, connStr)
	}
	return nil, errors.Newf("unrecognised warehouse scheme %s", s)
}

// redact strips credentials so connection strings can appear in errors.
func redact(connStr string) string {
	at := strings.LastIndex(connStr, "@")
	if at == -1 {
		return connStr
	}
	if idx := strings.Index(connStr, "://"); idx != -1 && idx < at {
		return connStr[:idx+3] + "***" + connStr[at:]
	}
	return "***" + connStr[at:]
}
