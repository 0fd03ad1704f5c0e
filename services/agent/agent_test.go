package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"dbadminapi/config"
	"dbadminapi/models"
	"dbadminapi/services/dao"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	calls   []Command
	once    []Operation
	agentID string
	execute func(cmd Command) (string, error)
}

func (f *fakeTransport) Execute(ctx context.Context, agentID, hexEncodedJSON string) (string, error) {
	cmd, err := DecodeCommand(hexEncodedJSON)
	if err != nil {
		return "", err
	}
	f.agentID = agentID
	f.calls = append(f.calls, cmd)
	return f.execute(cmd)
}

func (f *fakeTransport) ExecuteOnce(ctx context.Context, agentID, hexEncodedJSON string) (string, error) {
	cmd, err := DecodeCommand(hexEncodedJSON)
	if err != nil {
		return "", err
	}
	f.once = append(f.once, cmd.Operation)
	return f.Execute(ctx, agentID, hexEncodedJSON)
}

func reply(t *testing.T, data interface{}) string {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"data": data})
	require.NoError(t, err)
	return string(raw)
}

func testTransport(t *testing.T, maxRetries int, run runFunc) *CLITransport {
	t.Helper()
	tr := NewCLITransportWithConfig(config.AppConfig{
		AgentAPIPath:        "/usr/local/bin/dbfAgentAPI",
		AgentExecutablePath: "/etc/v2/dbf/bin/dbfsqlexecute",
		AgentMaxRetries:     maxRetries,
		AgentRetryBaseDelay: time.Millisecond,
	})
	tr.run = run
	return tr
}

func envelope(t *testing.T, resp AgentAPIResponse) []byte {
	t.Helper()
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	return raw
}

func TestCommandEncodeDecode(t *testing.T) {
	in := Command{Operation: OpAddRow, TableName: "users", Row: dao.Row{"email": "a@b.com"}}
	encoded, err := in.Encode()
	require.NoError(t, err)
	assert.NotContains(t, encoded, "users")

	out, err := DecodeCommand(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeCommand("zz")
	assert.Error(t, err)
}

func TestCLITransportBuildsCommand(t *testing.T) {
	var gotName string
	var gotArgs []string
	tr := testTransport(t, 1, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return envelope(t, AgentAPIResponse{Status: "success", Output: `{"data":[]}`}), nil
	})

	out, err := tr.Execute(context.Background(), "conn-1", "abcd")
	require.NoError(t, err)
	assert.Equal(t, `{"data":[]}`, out)
	assert.Equal(t, "sudo", gotName)
	assert.Equal(t, []string{
		"/usr/local/bin/dbfAgentAPI", "--json", "cmd", "conn-1",
		"/etc/v2/dbf/bin/dbfsqlexecute execute abcd",
	}, gotArgs)
}

func TestCLITransportRetriesTransientErrors(t *testing.T) {
	attempts := 0
	tr := testTransport(t, 3, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("dial tcp 10.0.0.1:443: connection refused")
		}
		return envelope(t, AgentAPIResponse{Status: "success", Output: "ok"}), nil
	})

	out, err := tr.Execute(context.Background(), "conn-1", "00")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, attempts)
}

func TestCLITransportStopsOnPermanentErrors(t *testing.T) {
	attempts := 0
	tr := testTransport(t, 5, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		attempts++
		return nil, errors.New("permission denied")
	})

	_, err := tr.Execute(context.Background(), "conn-1", "00")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestCLITransportGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	tr := testTransport(t, 2, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		attempts++
		return []byte("not json"), nil
	})

	_, err := tr.Execute(context.Background(), "conn-1", "00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
	assert.Equal(t, 2, attempts)
}

func TestParseAgentResponse(t *testing.T) {
	tests := []struct {
		name    string
		resp    AgentAPIResponse
		want    string
		wantErr string
	}{
		{name: "success", resp: AgentAPIResponse{Status: "success", Output: "x"}, want: "x"},
		{name: "timeout", resp: AgentAPIResponse{Status: "timeout", Message: "slow"}, wantErr: "timed out"},
		{name: "error", resp: AgentAPIResponse{Status: "error", ExitCode: 2, Message: "boom"}, wantErr: "exit_code=2"},
		{name: "empty", resp: AgentAPIResponse{Status: "success"}, wantErr: "empty output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAgentResponse(envelope(t, tt.resp))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsRetryableAgentError(t *testing.T) {
	assert.False(t, isRetryableAgentError(nil))
	assert.True(t, isRetryableAgentError(errors.New("context deadline exceeded")))
	assert.True(t, isRetryableAgentError(errors.New("dial tcp 10.0.0.1:443: connection refused")))
	assert.False(t, isRetryableAgentError(errors.New("something odd")))
	assert.False(t, isRetryableAgentError(errors.New("Access denied for user")))
	assert.False(t, isRetryableAgentError(errors.New("invalid payload")))
	assert.False(t, isRetryableAgentError(fmt.Errorf("%w with exit_code=1: lock wait timeout exceeded", errCommandFailed)))
}

func TestOperationMutates(t *testing.T) {
	for _, op := range []Operation{OpAddRow, OpUpdateRow, OpDeleteRow} {
		assert.True(t, op.Mutates(), op)
	}
	for _, op := range []Operation{OpGetTables, OpGetStructure, OpGetPrimaryColumns, OpGetForeignKeys, OpGetRowByPrimaryKey} {
		assert.False(t, op.Mutates(), op)
	}
}

func TestAgentDAOSendsMutationsOnce(t *testing.T) {
	failures := map[string][]byte{
		"engine error": []byte(`{"status":"error","exit_code":1,"message":"duplicate key value violates unique constraint"}`),
		"timeout":      []byte(`{"status":"timeout","message":"no reply"}`),
		"empty reply":  []byte(`{"status":"success"}`),
		"garbled":      []byte(`not json`),
	}
	mutations := map[string]func(d *DAO) error{
		"add": func(d *DAO) error {
			_, err := d.AddRowInTable(context.Background(), "users", dao.Row{"email": "a@b.com"}, "")
			return err
		},
		"update": func(d *DAO) error {
			_, err := d.UpdateRowInTable(context.Background(), "users", dao.Row{"email": "c@d.com"}, dao.Row{"id": 1}, "")
			return err
		},
		"delete": func(d *DAO) error {
			_, err := d.DeleteRowInTable(context.Background(), "users", dao.Row{"id": 1}, "")
			return err
		},
	}
	for failure, out := range failures {
		for name, mutate := range mutations {
			t.Run(name+"/"+failure, func(t *testing.T) {
				runs := 0
				tr := testTransport(t, 3, func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
					runs++
					return out, nil
				})
				d := NewDAO(models.Connection{ID: "conn-1", Type: models.ConnectionTypeAgentPostgres}, tr)

				require.Error(t, mutate(d))
				assert.Equal(t, 1, runs)
			})
		}
	}
}

func TestAgentDAORetriesReads(t *testing.T) {
	runs := 0
	tr := testTransport(t, 3, func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		runs++
		if runs < 3 {
			return []byte(`{"status":"timeout","message":"no reply"}`), nil
		}
		return envelope(t, AgentAPIResponse{Status: "success", Output: `{"data":[{"tableName":"users","isView":false}]}`}), nil
	})
	d := NewDAO(models.Connection{ID: "conn-1", Type: models.ConnectionTypeAgentPostgres}, tr)

	tables, err := d.GetTablesFromDB(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []dao.Table{{Name: "users"}}, tables)
	assert.Equal(t, 3, runs)
}

func TestCLITransportDoesNotRetryEngineErrors(t *testing.T) {
	runs := 0
	tr := testTransport(t, 3, func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		runs++
		return envelope(t, AgentAPIResponse{Status: "error", ExitCode: 1, Message: "relation \"users\" does not exist"}), nil
	})

	_, err := tr.Execute(context.Background(), "conn-1", "00")
	require.Error(t, err)
	assert.Equal(t, 1, runs)
}

func TestAgentDAORoundTrips(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDAO(models.Connection{ID: "conn-9", Type: models.ConnectionTypeAgentPostgres}, ft)
	ctx := context.Background()

	ft.execute = func(cmd Command) (string, error) {
		switch cmd.Operation {
		case OpGetPrimaryColumns:
			return reply(t, []dao.PrimaryColumn{{ColumnName: "id", DataType: "integer"}}), nil
		case OpAddRow:
			return reply(t, map[string]interface{}{"id": 7}), nil
		case OpGetRowByPrimaryKey:
			return reply(t, map[string]interface{}{"id": 7, "email": "a@b.com", "secret": "s"}), nil
		}
		return reply(t, nil), nil
	}

	pk, err := d.GetTablePrimaryColumns(ctx, "users", "u@x.io")
	require.NoError(t, err)
	assert.Equal(t, []dao.PrimaryColumn{{ColumnName: "id", DataType: "integer"}}, pk)

	key, err := d.AddRowInTable(ctx, "users", dao.Row{"email": "a@b.com"}, "u@x.io")
	require.NoError(t, err)
	assert.Equal(t, dao.Row{"id": json.Number("7")}, key)

	row, err := d.GetRowByPrimaryKey(ctx, "users", key, &models.TableSettings{ExcludedFields: []string{"secret"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", row["email"])
	assert.NotContains(t, row, "secret")

	deleted, err := d.DeleteRowInTable(ctx, "users", key, "")
	require.NoError(t, err)
	assert.Equal(t, key, deleted)

	assert.Equal(t, "conn-9", ft.agentID)
	assert.Equal(t, []Operation{OpAddRow, OpDeleteRow}, ft.once)
	require.Len(t, ft.calls, 4)
	assert.Equal(t, "postgres", ft.calls[0].ConnectionType)
	assert.Equal(t, []string{"secret"}, ft.calls[2].ExcludedFields)
}

func TestAgentDAOErrors(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDAO(models.Connection{ID: "conn-9", Type: models.ConnectionTypeAgentMySQL}, ft)
	ctx := context.Background()

	ft.execute = func(cmd Command) (string, error) {
		return `{"error":"Error 1062: Duplicate entry 'a@b.com' for key 'email'"}`, nil
	}
	_, err := d.AddRowInTable(ctx, "users", dao.Row{"email": "a@b.com"}, "")
	require.Error(t, err)
	assert.True(t, dao.IsDuplicateKeyError(err))

	ft.execute = func(cmd Command) (string, error) {
		return `{"error":"no rows affected"}`, nil
	}
	_, err = d.DeleteRowInTable(ctx, "users", dao.Row{"id": 1}, "")
	assert.ErrorIs(t, err, dao.ErrNoRowsAffected)

	ft.execute = func(cmd Command) (string, error) {
		return reply(t, nil), nil
	}
	row, err := d.GetRowByPrimaryKey(ctx, "users", dao.Row{"id": 1}, nil, "")
	require.NoError(t, err)
	assert.Nil(t, row)

	ft.execute = func(cmd Command) (string, error) {
		return "", errors.New("dbfAgentAPI failed after 5 attempts")
	}
	_, err = d.GetTablesFromDB(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent conn-9")

	ft.execute = func(cmd Command) (string, error) {
		return "garbage", nil
	}
	_, err = d.GetTablesFromDB(ctx)
	assert.Error(t, err)
}

func TestAgentTypesAreRegistered(t *testing.T) {
	d, err := dao.DefaultRegistry.CreateDataAccessObject(models.Connection{ID: "c", Type: models.ConnectionTypeAgentOracle}, "u")
	require.NoError(t, err)
	agentDAO, ok := d.(dao.AgentDataAccessObject)
	require.True(t, ok)
	assert.Equal(t, "c", agentDAO.AgentID())
	assert.Equal(t, dao.KindAgent, dao.KindOf(models.ConnectionTypeAgentOracle))
}
