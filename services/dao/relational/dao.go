package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"dbadminapi/models"
	"dbadminapi/services/dao"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// DAO is the relational data access object. It connects lazily on first use and owns
// its connection pool and SSH tunnel until Close.
type DAO struct {
	conn    models.Connection
	dialect Dialect
	schema  string

	mu     sync.Mutex
	db     *sqlx.DB
	tunnel *sshTunnel
	closed bool
}

// New creates a DAO for a decrypted connection. No I/O happens until the first call.
func New(conn models.Connection, d Dialect) *DAO {
	schema := conn.Schema
	if schema == "" && d.DefaultSchema != nil {
		schema = d.DefaultSchema(conn)
	}
	return &DAO{conn: conn, dialect: d, schema: schema}
}

// NewWithDB wraps an already opened pool. Used by tests and by callers that manage pooling.
func NewWithDB(db *sqlx.DB, conn models.Connection, d Dialect) *DAO {
	r := New(conn, d)
	r.db = db
	return r
}

func (r *DAO) open(ctx context.Context) (*sqlx.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.New("data access object is closed")
	}
	if r.db != nil {
		return r.db, nil
	}

	host, port := r.conn.Host, r.conn.Port
	if port == 0 {
		port = r.dialect.DefaultPort
	}
	if r.conn.SSH {
		t, err := openTunnel(ctx, r.conn, host, port)
		if err != nil {
			return nil, err
		}
		r.tunnel = t
		host, port = t.LocalAddr()
	}

	dsn, err := r.dialect.DSN(r.conn, host, port)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(r.dialect.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s connection", r.dialect.Name)
	}
	if r.dialect.Name == sqliteDialect.Name {
		// a single writer avoids SQLITE_BUSY between pool connections
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
	}
	r.db = db
	return db, nil
}

type tableRecord struct {
	TableName string `db:"table_name"`
	TableType string `db:"table_type"`
}

type columnRecord struct {
	ColumnName             string         `db:"column_name"`
	DataType               sql.NullString `db:"data_type"`
	ColumnDefault          sql.NullString `db:"column_default"`
	IsNullable             string         `db:"is_nullable"`
	CharacterMaximumLength sql.NullInt64  `db:"character_maximum_length"`
	Extra                  sql.NullString `db:"extra"`
}

type primaryColumnRecord struct {
	ColumnName string         `db:"column_name"`
	DataType   sql.NullString `db:"data_type"`
}

type foreignKeyRecord struct {
	ColumnName           string         `db:"column_name"`
	ReferencedTableName  string         `db:"referenced_table_name"`
	ReferencedColumnName sql.NullString `db:"referenced_column_name"`
	ConstraintName       sql.NullString `db:"constraint_name"`
}

func (r *DAO) selectInto(ctx context.Context, dest interface{}, q Query) error {
	db, err := r.open(ctx)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, db, dest, db.Rebind(q.SQL), q.Args...)
}

func (r *DAO) GetTablesFromDB(ctx context.Context) ([]dao.Table, error) {
	var records []tableRecord
	if err := r.selectInto(ctx, &records, r.dialect.Tables(r.schema)); err != nil {
		return nil, errors.Wrap(err, "get tables")
	}
	tables := make([]dao.Table, 0, len(records))
	for _, rec := range records {
		tables = append(tables, dao.Table{
			Name:   rec.TableName,
			IsView: strings.Contains(strings.ToUpper(rec.TableType), "VIEW"),
		})
	}
	return tables, nil
}

func (r *DAO) GetTableStructure(ctx context.Context, tableName, userEmail string) ([]dao.ColumnStructure, error) {
	var records []columnRecord
	if err := r.selectInto(ctx, &records, r.dialect.Structure(r.schema, tableName)); err != nil {
		return nil, errors.Wrapf(err, "get structure of %s", tableName)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table %q not found", tableName)
	}
	out := make([]dao.ColumnStructure, 0, len(records))
	for _, rec := range records {
		col := dao.ColumnStructure{
			ColumnName: rec.ColumnName,
			DataType:   strings.ToLower(rec.DataType.String),
			AllowNull:  strings.EqualFold(rec.IsNullable, "YES"),
			Extra:      strings.TrimSpace(rec.Extra.String),
		}
		if rec.ColumnDefault.Valid {
			def := rec.ColumnDefault.String
			col.ColumnDefault = &def
		}
		if rec.CharacterMaximumLength.Valid {
			l := rec.CharacterMaximumLength.Int64
			col.CharacterMaximumLength = &l
		}
		out = append(out, col)
	}
	return out, nil
}

func (r *DAO) GetTablePrimaryColumns(ctx context.Context, tableName, userEmail string) ([]dao.PrimaryColumn, error) {
	var records []primaryColumnRecord
	if err := r.selectInto(ctx, &records, r.dialect.PrimaryColumns(r.schema, tableName)); err != nil {
		return nil, errors.Wrapf(err, "get primary columns of %s", tableName)
	}
	out := make([]dao.PrimaryColumn, 0, len(records))
	for _, rec := range records {
		out = append(out, dao.PrimaryColumn{ColumnName: rec.ColumnName, DataType: strings.ToLower(rec.DataType.String)})
	}
	return out, nil
}

func (r *DAO) GetTableForeignKeys(ctx context.Context, tableName, userEmail string) ([]dao.ForeignKey, error) {
	var records []foreignKeyRecord
	if err := r.selectInto(ctx, &records, r.dialect.ForeignKeys(r.schema, tableName)); err != nil {
		return nil, errors.Wrapf(err, "get foreign keys of %s", tableName)
	}
	out := make([]dao.ForeignKey, 0, len(records))
	for _, rec := range records {
		out = append(out, dao.ForeignKey{
			ColumnName:           rec.ColumnName,
			ReferencedTableName:  rec.ReferencedTableName,
			ReferencedColumnName: rec.ReferencedColumnName.String,
			ConstraintName:       rec.ConstraintName.String,
		})
	}
	return out, nil
}

func (r *DAO) GetRowByPrimaryKey(ctx context.Context, tableName string, primaryKey dao.Row, settings *models.TableSettings, userEmail string) (dao.Row, error) {
	where, args, err := r.where(primaryKey)
	if err != nil {
		return nil, err
	}
	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf("SELECT * FROM %s WHERE %s", r.dialect.TableRef(r.schema, tableName), where)
	rows, err := db.QueryxContext(ctx, db.Rebind(q), args...)
	if err != nil {
		return nil, errors.Wrapf(err, "get row from %s", tableName)
	}
	defer rows.Close()

	found, err := scanRows(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "scan row from %s", tableName)
	}
	if len(found) == 0 {
		return nil, nil
	}
	row := found[0]
	if settings != nil {
		for _, f := range settings.ExcludedFields {
			delete(row, f)
		}
	}
	return row, nil
}

func (r *DAO) AddRowInTable(ctx context.Context, tableName string, row dao.Row, userEmail string) (dao.Row, error) {
	primary, err := r.GetTablePrimaryColumns(ctx, tableName, userEmail)
	if err != nil {
		return nil, err
	}
	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}

	cols := row.Columns()
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		quoted[i] = r.dialect.Quote(c)
		marks[i] = "?"
		args[i] = row[c]
	}
	table := r.dialect.TableRef(r.schema, tableName)
	target := fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(quoted, ", "))
	values := fmt.Sprintf("VALUES (%s)", strings.Join(marks, ", "))
	if len(cols) == 0 {
		target = "INSERT INTO " + table
		values = "DEFAULT VALUES"
		if r.dialect.Returning == ReturningLastInsertID {
			values = "() VALUES ()"
		}
	}

	pkCols := make([]string, len(primary))
	for i, pc := range primary {
		pkCols[i] = pc.ColumnName
	}

	switch {
	case len(primary) == 0:
		if _, err := db.ExecContext(ctx, db.Rebind(target+" "+values), args...); err != nil {
			return nil, errors.Wrapf(err, "insert into %s", tableName)
		}
		return dao.Row{}, nil

	case r.dialect.Returning == ReturningClause:
		q := fmt.Sprintf("%s %s RETURNING %s", target, values, r.quoteAll(pkCols))
		return r.queryKey(ctx, db, q, args, tableName)

	case r.dialect.Returning == ReturningOutput:
		inserted := make([]string, len(pkCols))
		for i, c := range pkCols {
			inserted[i] = "INSERTED." + r.dialect.Quote(c)
		}
		q := fmt.Sprintf("%s OUTPUT %s %s", target, strings.Join(inserted, ", "), values)
		return r.queryKey(ctx, db, q, args, tableName)

	case r.dialect.Returning == ReturningInto:
		key, missing := keyFromRow(row, pkCols)
		if len(missing) == 0 {
			if _, err := db.ExecContext(ctx, db.Rebind(target+" "+values), args...); err != nil {
				return nil, errors.Wrapf(err, "insert into %s", tableName)
			}
			return key, nil
		}
		dests := make([]sql.NullString, len(missing))
		outMarks := make([]string, len(missing))
		for i := range missing {
			outMarks[i] = "?"
			args = append(args, sql.Out{Dest: &dests[i]})
		}
		q := fmt.Sprintf("%s %s RETURNING %s INTO %s", target, values, r.quoteAll(missing), strings.Join(outMarks, ", "))
		if _, err := db.ExecContext(ctx, db.Rebind(q), args...); err != nil {
			return nil, errors.Wrapf(err, "insert into %s", tableName)
		}
		for i, c := range missing {
			key[c] = dests[i].String
		}
		return key, nil

	default:
		res, err := db.ExecContext(ctx, db.Rebind(target+" "+values), args...)
		if err != nil {
			return nil, errors.Wrapf(err, "insert into %s", tableName)
		}
		key, missing := keyFromRow(row, pkCols)
		if len(missing) == 1 {
			id, err := res.LastInsertId()
			if err != nil {
				return nil, errors.Wrapf(err, "read generated key of %s", tableName)
			}
			key[missing[0]] = id
		}
		return key, nil
	}
}

func (r *DAO) UpdateRowInTable(ctx context.Context, tableName string, row, primaryKey dao.Row, userEmail string) (dao.Row, error) {
	where, whereArgs, err := r.where(primaryKey)
	if err != nil {
		return nil, err
	}
	newKey := primaryKey.Clone()
	for c := range primaryKey {
		if v, ok := row[c]; ok {
			newKey[c] = v
		}
	}
	if len(row) == 0 {
		return newKey, nil
	}

	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	cols := row.Columns()
	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+len(whereArgs))
	for i, c := range cols {
		sets[i] = r.dialect.Quote(c) + " = ?"
		args = append(args, row[c])
	}
	args = append(args, whereArgs...)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s", r.dialect.TableRef(r.schema, tableName), strings.Join(sets, ", "), where)
	if _, err := db.ExecContext(ctx, db.Rebind(q), args...); err != nil {
		return nil, errors.Wrapf(err, "update %s", tableName)
	}
	return newKey, nil
}

func (r *DAO) DeleteRowInTable(ctx context.Context, tableName string, primaryKey dao.Row, userEmail string) (dao.Row, error) {
	where, args, err := r.where(primaryKey)
	if err != nil {
		return nil, err
	}
	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf("DELETE FROM %s WHERE %s", r.dialect.TableRef(r.schema, tableName), where)
	res, err := db.ExecContext(ctx, db.Rebind(q), args...)
	if err != nil {
		return nil, errors.Wrapf(err, "delete from %s", tableName)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, dao.ErrNoRowsAffected
	}
	return primaryKey.Clone(), nil
}

// Close releases the pool and the SSH tunnel. It is safe to call more than once.
func (r *DAO) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if r.db != nil {
		firstErr = r.db.Close()
	}
	if r.tunnel != nil {
		if err := r.tunnel.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *DAO) where(primaryKey dao.Row) (string, []interface{}, error) {
	if len(primaryKey) == 0 {
		return "", nil, errors.New("primary key is empty")
	}
	cols := primaryKey.Columns()
	parts := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		parts[i] = r.dialect.Quote(c) + " = ?"
		args[i] = primaryKey[c]
	}
	return strings.Join(parts, " AND "), args, nil
}

func (r *DAO) quoteAll(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = r.dialect.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

func (r *DAO) queryKey(ctx context.Context, db *sqlx.DB, q string, args []interface{}, tableName string) (dao.Row, error) {
	rows, err := db.QueryxContext(ctx, db.Rebind(q), args...)
	if err != nil {
		return nil, errors.Wrapf(err, "insert into %s", tableName)
	}
	defer rows.Close()

	keys, err := scanRows(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "insert into %s", tableName)
	}
	if len(keys) == 0 {
		return nil, errors.Errorf("insert into %s returned no key", tableName)
	}
	return keys[0], nil
}

// keyFromRow picks the primary key columns out of row and reports which are absent.
func keyFromRow(row dao.Row, pkCols []string) (dao.Row, []string) {
	key := dao.Row{}
	var missing []string
	for _, c := range pkCols {
		if v, ok := row[c]; ok && v != nil {
			key[c] = v
		} else {
			missing = append(missing, c)
		}
	}
	return key, missing
}

// scanRows reads every row as a column map. []byte values become strings unless the
// column type is binary.
func scanRows(rows *sqlx.Rows) ([]dao.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	binary := make([]bool, len(cols))
	for i, ct := range types {
		binary[i] = dao.IsBinaryType(ct.DatabaseTypeName())
	}

	var out []dao.Row
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		row := make(dao.Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(values[i], binary[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func normalizeValue(v interface{}, binary bool) interface{} {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if binary {
		cp := make([]byte, len(b))
		copy(cp, b)
		return cp
	}
	return string(b)
}
