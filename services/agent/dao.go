package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"dbadminapi/models"
	"dbadminapi/services/dao"

	"github.com/pkg/errors"
)

// DAO proxies every data access call to a remote agent. The agent reports engine
// errors as text, which keeps duplicate-key detection working through the message
// patterns in dao.IsDuplicateKeyError.
type DAO struct {
	conn      models.Connection
	transport Transport
}

// NewDAO creates an agent DAO for conn. No I/O happens until the first call.
func NewDAO(conn models.Connection, transport Transport) *DAO {
	return &DAO{conn: conn, transport: transport}
}

// AgentID is the client id the agent API addresses; agents register under their connection id.
func (d *DAO) AgentID() string {
	return d.conn.ID
}

func (d *DAO) engine() string {
	return strings.TrimPrefix(string(d.conn.Type), "agent_")
}

func (d *DAO) call(ctx context.Context, cmd Command, out interface{}) error {
	cmd.ConnectionType = d.engine()
	payload, err := cmd.Encode()
	if err != nil {
		return err
	}

	execute := d.transport.Execute
	if cmd.Operation.Mutates() {
		execute = d.transport.ExecuteOnce
	}
	output, err := execute(ctx, d.AgentID(), payload)
	if err != nil {
		return errors.Wrapf(err, "agent %s: %s", d.AgentID(), cmd.Operation)
	}

	var res commandResult
	if err := decodeJSON([]byte(output), &res); err != nil {
		return errors.Wrapf(err, "agent %s: %s returned malformed output", d.AgentID(), cmd.Operation)
	}
	if res.Error != "" {
		if res.Error == dao.ErrNoRowsAffected.Error() {
			return dao.ErrNoRowsAffected
		}
		return errors.New(res.Error)
	}
	if out == nil || len(res.Data) == 0 || string(res.Data) == "null" {
		return nil
	}
	if err := decodeJSON(res.Data, out); err != nil {
		return errors.Wrapf(err, "agent %s: decode %s result", d.AgentID(), cmd.Operation)
	}
	return nil
}

// decodeJSON keeps numbers as json.Number so large integer keys survive the round trip.
func decodeJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func (d *DAO) GetTablesFromDB(ctx context.Context) ([]dao.Table, error) {
	var tables []dao.Table
	err := d.call(ctx, Command{Operation: OpGetTables}, &tables)
	return tables, err
}

func (d *DAO) GetTableStructure(ctx context.Context, tableName, userEmail string) ([]dao.ColumnStructure, error) {
	var cols []dao.ColumnStructure
	err := d.call(ctx, Command{Operation: OpGetStructure, TableName: tableName, Email: userEmail}, &cols)
	return cols, err
}

func (d *DAO) GetTablePrimaryColumns(ctx context.Context, tableName, userEmail string) ([]dao.PrimaryColumn, error) {
	var cols []dao.PrimaryColumn
	err := d.call(ctx, Command{Operation: OpGetPrimaryColumns, TableName: tableName, Email: userEmail}, &cols)
	return cols, err
}

func (d *DAO) GetTableForeignKeys(ctx context.Context, tableName, userEmail string) ([]dao.ForeignKey, error) {
	var fks []dao.ForeignKey
	err := d.call(ctx, Command{Operation: OpGetForeignKeys, TableName: tableName, Email: userEmail}, &fks)
	return fks, err
}

func (d *DAO) GetRowByPrimaryKey(ctx context.Context, tableName string, primaryKey dao.Row, settings *models.TableSettings, userEmail string) (dao.Row, error) {
	cmd := Command{Operation: OpGetRowByPrimaryKey, TableName: tableName, PrimaryKey: primaryKey, Email: userEmail}
	if settings != nil {
		cmd.ExcludedFields = settings.ExcludedFields
	}
	var row dao.Row
	if err := d.call(ctx, cmd, &row); err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	for _, f := range cmd.ExcludedFields {
		delete(row, f)
	}
	return row, nil
}

func (d *DAO) AddRowInTable(ctx context.Context, tableName string, row dao.Row, userEmail string) (dao.Row, error) {
	var key dao.Row
	err := d.call(ctx, Command{Operation: OpAddRow, TableName: tableName, Row: row, Email: userEmail}, &key)
	return key, err
}

func (d *DAO) UpdateRowInTable(ctx context.Context, tableName string, row, primaryKey dao.Row, userEmail string) (dao.Row, error) {
	var key dao.Row
	err := d.call(ctx, Command{Operation: OpUpdateRow, TableName: tableName, Row: row, PrimaryKey: primaryKey, Email: userEmail}, &key)
	if err == nil && key == nil {
		key = primaryKey.Clone()
	}
	return key, err
}

func (d *DAO) DeleteRowInTable(ctx context.Context, tableName string, primaryKey dao.Row, userEmail string) (dao.Row, error) {
	var key dao.Row
	err := d.call(ctx, Command{Operation: OpDeleteRow, TableName: tableName, PrimaryKey: primaryKey, Email: userEmail}, &key)
	if err == nil && key == nil {
		key = primaryKey.Clone()
	}
	return key, err
}

// Close is a no-op; the agent owns the database connection.
func (d *DAO) Close() error {
	return nil
}

var _ dao.AgentDataAccessObject = (*DAO)(nil)

func init() {
	for _, t := range []models.ConnectionType{
		models.ConnectionTypeAgentPostgres,
		models.ConnectionTypeAgentMySQL,
		models.ConnectionTypeAgentMSSQL,
		models.ConnectionTypeAgentOracle,
	} {
		dao.Register(t, func(conn models.Connection, userID string) (dao.DataAccessObject, error) {
			return NewDAO(conn, DefaultTransport()), nil
		})
	}
}
