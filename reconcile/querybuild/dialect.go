package querybuild

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/argodata/argo/dbtable"
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/lexbase"
	"github.com/cockroachdb/errors"
)

// Dialect captures the quoting rules of one system's SQL.
type Dialect interface {
	Name() string
	QuoteIdent(name string) string
	QuoteString(s string) string
	// QuoteNumerics reports whether numeric and boolean literals are written as
	// quoted strings.
	QuoteNumerics() bool
	TableRef(table dbtable.Name) string
}

var (
	Domo      Dialect = domoDialect{}
	Snowflake Dialect = snowflakeDialect{}
	Postgres  Dialect = postgresDialect{}
	MySQL     Dialect = mysqlDialect{}
)

// SourceTable is how a dataset refers to itself in source queries.
const SourceTable = "table"

func LookupDialect(name string) (Dialect, error) {
	for _, d := range []Dialect{Domo, Snowflake, Postgres, MySQL} {
		if strings.EqualFold(d.Name(), name) {
			return d, nil
		}
	}
	return nil, errors.Newf("unknown SQL dialect %q", name)
}

var plainIdent = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func doubleQuoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func singleQuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type domoDialect struct{}

func (domoDialect) Name() string { return "domo" }
func (domoDialect) QuoteIdent(name string) string { return doubleQuoteIdent(name) }
func (domoDialect) QuoteString(s string) string { return singleQuoteString(s) }
func (domoDialect) QuoteNumerics() bool { return false }
func (domoDialect) TableRef(dbtable.Name) string { return SourceTable }

type snowflakeDialect struct{}

func (snowflakeDialect) Name() string { return "snowflake" }
func (snowflakeDialect) QuoteIdent(name string) string { return doubleQuoteIdent(name) }
func (snowflakeDialect) QuoteString(s string) string { return singleQuoteString(s) }
func (snowflakeDialect) QuoteNumerics() bool { return true }
func (d snowflakeDialect) TableRef(table dbtable.Name) string {
	parts := table.Parts()
	for i := range parts {
		parts[i] = d.QuoteIdent(parts[i])
	}
	return strings.Join(parts, ".")
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

// QuoteIdent quotes names that are not lower case, contain special characters
// or are reserved keywords.
func (postgresDialect) QuoteIdent(name string) string {
	var buf bytes.Buffer
	lexbase.EncodeRestrictedSQLIdent(&buf, name, lexbase.EncNoFlags)
	return buf.String()
}

func (postgresDialect) QuoteString(s string) string { return singleQuoteString(s) }
func (postgresDialect) QuoteNumerics() bool { return true }

// TableRef drops the database, which PostgreSQL cannot address across
// connections.
func (d postgresDialect) TableRef(table dbtable.Name) string {
	if table.Schema == "" {
		return d.QuoteIdent(table.Table)
	}
	return d.QuoteIdent(table.Schema) + "." + d.QuoteIdent(table.Table)
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }
func (mysqlDialect) QuoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
func (mysqlDialect) QuoteString(s string) string { return singleQuoteString(s) }
func (mysqlDialect) QuoteNumerics() bool { return true }

// TableRef treats the schema as the MySQL database, falling back to the
// database part.
func (d mysqlDialect) TableRef(table dbtable.Name) string {
	db := table.Schema
	if db == "" {
		db = table.Database
	}
	if db == "" {
		return d.QuoteIdent(table.Table)
	}
	return d.QuoteIdent(db) + "." + d.QuoteIdent(table.Table)
}
