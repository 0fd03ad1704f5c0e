// Package dao defines the contract every data access object implements, the
// metadata types they return and the factory that builds one per operation.
package dao

import (
	"context"
	"sort"
	"strings"

	"dbadminapi/models"
)

// Row maps column names to values. Binary values are []byte until the transform
// chain hex-encodes them for transport.
type Row map[string]interface{}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Columns returns the sorted keys of r.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Table is one entry of GetTablesFromDB.
type Table struct {
	Name   string `json:"tableName"`
	IsView bool   `json:"isView"`
}

// ColumnStructure describes one column of a table as reported live by the engine.
type ColumnStructure struct {
	ColumnName             string  `json:"column_name"`
	DataType               string  `json:"data_type"`
	ColumnDefault          *string `json:"column_default"`
	AllowNull              bool    `json:"allow_null"`
	Extra                  string  `json:"extra,omitempty"`
	CharacterMaximumLength *int64  `json:"character_maximum_length"`
}

// IsAutoIncrement reports whether the engine generates the column value.
func (c ColumnStructure) IsAutoIncrement() bool {
	return strings.Contains(strings.ToLower(c.Extra), "auto_increment")
}

// IsBinary reports whether the column stores raw bytes.
func (c ColumnStructure) IsBinary() bool {
	return IsBinaryType(c.DataType)
}

// IsRequired reports whether an insert must supply a value for the column.
func (c ColumnStructure) IsRequired() bool {
	return !c.AllowNull && c.ColumnDefault == nil && !c.IsAutoIncrement()
}

var binaryTypes = map[string]bool{
	"binary":     true,
	"varbinary":  true,
	"blob":       true,
	"tinyblob":   true,
	"mediumblob": true,
	"longblob":   true,
	"bytea":      true,
	"image":      true,
	"raw":        true,
	"long raw":   true,
}

// IsBinaryType reports whether a vendor type name denotes a binary column.
// Length suffixes such as "varbinary(16)" are ignored.
func IsBinaryType(dataType string) bool {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return binaryTypes[t]
}

// PrimaryColumn is one column of a table's primary key.
type PrimaryColumn struct {
	ColumnName string `json:"column_name"`
	DataType   string `json:"data_type"`
}

// ForeignKey is a real or widget-defined foreign key.
type ForeignKey struct {
	ColumnName           string `json:"column_name"`
	ReferencedColumnName string `json:"referenced_column_name"`
	ReferencedTableName  string `json:"referenced_table_name"`
	ConstraintName       string `json:"constraint_name"`
}

// DataAccessObject is implemented once per engine family. Every method may block on
// network I/O and honours ctx cancellation.
type DataAccessObject interface {
	GetTablesFromDB(ctx context.Context) ([]Table, error)
	GetTableStructure(ctx context.Context, tableName, userEmail string) ([]ColumnStructure, error)
	GetTablePrimaryColumns(ctx context.Context, tableName, userEmail string) ([]PrimaryColumn, error)
	GetTableForeignKeys(ctx context.Context, tableName, userEmail string) ([]ForeignKey, error)
	// GetRowByPrimaryKey returns nil, nil when no row matches. Columns listed in
	// settings.ExcludedFields are omitted.
	GetRowByPrimaryKey(ctx context.Context, tableName string, primaryKey Row, settings *models.TableSettings, userEmail string) (Row, error)
	// AddRowInTable returns the primary key of the inserted row.
	AddRowInTable(ctx context.Context, tableName string, row Row, userEmail string) (Row, error)
	// UpdateRowInTable returns the primary key of the row after the update.
	UpdateRowInTable(ctx context.Context, tableName string, row, primaryKey Row, userEmail string) (Row, error)
	// DeleteRowInTable returns the primary key of the deleted row.
	DeleteRowInTable(ctx context.Context, tableName string, primaryKey Row, userEmail string) (Row, error)
	Close() error
}

// AgentDataAccessObject is a DataAccessObject whose calls are proxied through a remote agent.
type AgentDataAccessObject interface {
	DataAccessObject
	AgentID() string
}

// Kind is the capability family a connection type resolves to.
type Kind int

// DAO kinds.
const (
	KindUnsupported Kind = iota
	KindRelational
	KindAgent
)

// KindOf resolves a connection type to its DAO family.
func KindOf(t models.ConnectionType) Kind {
	switch {
	case t.IsAgent():
		return KindAgent
	case t == models.ConnectionTypePostgres, t == models.ConnectionTypeMySQL, t == models.ConnectionTypeMSSQL,
		t == models.ConnectionTypeOracle, t == models.ConnectionTypeSQLite:
		return KindRelational
	}
	return KindUnsupported
}
