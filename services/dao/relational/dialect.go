// Package relational implements the data access object for SQL engines on top of sqlx.
// One implementation serves every engine; engine differences live in a Dialect.
package relational

import (
	"fmt"
	"strings"

	"dbadminapi/models"
	"dbadminapi/services/dao"

	"github.com/jmoiron/sqlx"
)

// ReturningStyle is how an INSERT reports generated key values.
type ReturningStyle int

// Returning styles.
const (
	// ReturningClause appends RETURNING <pk columns> (postgres, sqlite).
	ReturningClause ReturningStyle = iota
	// ReturningOutput inserts OUTPUT INSERTED.<pk> before VALUES (mssql).
	ReturningOutput
	// ReturningLastInsertID reads sql.Result.LastInsertId (mysql).
	ReturningLastInsertID
	// ReturningInto binds RETURNING ... INTO out parameters (oracle).
	ReturningInto
)

// Query is a statement written with ? placeholders plus its arguments. It is rebound
// to the driver's placeholder style before execution.
type Query struct {
	SQL  string
	Args []interface{}
}

// Dialect captures everything that differs between engines.
type Dialect struct {
	Name        string
	Driver      string
	DefaultPort int
	Returning   ReturningStyle

	// DSN builds the driver data source name. host and port may point at an SSH tunnel.
	DSN func(conn models.Connection, host string, port int) (string, error)
	// DefaultSchema is used when the connection does not name one.
	DefaultSchema func(conn models.Connection) string

	Quote func(ident string) string

	// Introspection queries. Result columns are aliased to the scan struct tags.
	Tables         func(schema string) Query
	Structure      func(schema, table string) Query
	PrimaryColumns func(schema, table string) Query
	ForeignKeys    func(schema, table string) Query

	// QualifiesTables reports whether table references carry the schema prefix.
	QualifiesTables bool
}

// TableRef returns the quoted, optionally schema-qualified table reference.
func (d Dialect) TableRef(schema, table string) string {
	if d.QualifiesTables && schema != "" {
		return d.Quote(schema) + "." + d.Quote(table)
	}
	return d.Quote(table)
}

func quoteWith(open, close string) func(string) string {
	return func(ident string) string {
		return open + strings.ReplaceAll(ident, close, close+close) + close
	}
}

var dialects = map[models.ConnectionType]Dialect{}

// RegisterDialect makes d available for connection type t and registers the matching
// constructor with the DAO factory.
func RegisterDialect(t models.ConnectionType, d Dialect) {
	dialects[t] = d
	dao.Register(t, func(conn models.Connection, userID string) (dao.DataAccessObject, error) {
		return New(conn, d), nil
	})
}

// DialectFor returns the dialect registered for t.
func DialectFor(t models.ConnectionType) (Dialect, error) {
	d, ok := dialects[t]
	if !ok {
		return Dialect{}, fmt.Errorf("no relational dialect registered for %q", t)
	}
	return d, nil
}

func init() {
	// go-ora and modernc sqlite register driver names sqlx does not know.
	sqlx.BindDriver("oracle", sqlx.NAMED)
	sqlx.BindDriver("sqlite", sqlx.QUESTION)

	RegisterDialect(models.ConnectionTypePostgres, postgresDialect)
	RegisterDialect(models.ConnectionTypeMySQL, mysqlDialect)
	RegisterDialect(models.ConnectionTypeMSSQL, mssqlDialect)
	RegisterDialect(models.ConnectionTypeOracle, oracleDialect)
	RegisterDialect(models.ConnectionTypeSQLite, sqliteDialect)
}
