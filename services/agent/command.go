package agent

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"dbadminapi/services/dao"
)

// Operation names understood by dbfsqlexecute on the agent host.
type Operation string

const (
	OpGetTables          Operation = "getTables"
	OpGetStructure       Operation = "getTableStructure"
	OpGetPrimaryColumns  Operation = "getTablePrimaryColumns"
	OpGetForeignKeys     Operation = "getTableForeignKeys"
	OpGetRowByPrimaryKey Operation = "getRowByPrimaryKey"
	OpAddRow             Operation = "addRowInTable"
	OpUpdateRow          Operation = "updateRowInTable"
	OpDeleteRow          Operation = "deleteRowInTable"
)

// Mutates reports whether the operation changes data on the target database.
func (o Operation) Mutates() bool {
	switch o {
	case OpAddRow, OpUpdateRow, OpDeleteRow:
		return true
	}
	return false
}

// Command is the JSON document sent to the agent for one DAO call.
type Command struct {
	Operation      Operation `json:"operation"`
	ConnectionType string    `json:"connectionType"`
	TableName      string    `json:"tableName,omitempty"`
	Row            dao.Row   `json:"row,omitempty"`
	PrimaryKey     dao.Row   `json:"primaryKey,omitempty"`
	ExcludedFields []string  `json:"excludedFields,omitempty"`
	Email          string    `json:"email,omitempty"`
}

// Encode marshals the command to JSON and hex-encodes it so it survives shell quoting.
func (c Command) Encode() (string, error) {
	paramBytes, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal agent command to JSON: %w", err)
	}
	return hex.EncodeToString(paramBytes), nil
}

// DecodeCommand reverses Encode.
func DecodeCommand(hexEncodedJSON string) (Command, error) {
	var c Command
	raw, err := hex.DecodeString(hexEncodedJSON)
	if err != nil {
		return c, fmt.Errorf("failed to decode agent command: %w", err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("failed to unmarshal agent command: %w", err)
	}
	return c, nil
}

// commandResult is what dbfsqlexecute prints on stdout.
type commandResult struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}
