package models

import "time"

// ConnectionType identifies the engine (and, for agent_* types, the proxy) behind a connection.
type ConnectionType string

// Supported connection types.
const (
	ConnectionTypePostgres      ConnectionType = "postgres"
	ConnectionTypeMySQL         ConnectionType = "mysql"
	ConnectionTypeMSSQL         ConnectionType = "mssql"
	ConnectionTypeOracle        ConnectionType = "oracledb"
	ConnectionTypeSQLite        ConnectionType = "sqlite"
	ConnectionTypeMongo         ConnectionType = "mongodb"
	ConnectionTypeDynamo        ConnectionType = "dynamodb"
	ConnectionTypeAgentPostgres ConnectionType = "agent_postgres"
	ConnectionTypeAgentMySQL    ConnectionType = "agent_mysql"
	ConnectionTypeAgentMSSQL    ConnectionType = "agent_mssql"
	ConnectionTypeAgentOracle   ConnectionType = "agent_oracledb"
)

// IsAgent reports whether the connection is proxied through a remote agent.
func (t ConnectionType) IsAgent() bool {
	switch t {
	case ConnectionTypeAgentPostgres, ConnectionTypeAgentMySQL, ConnectionTypeAgentMSSQL, ConnectionTypeAgentOracle:
		return true
	}
	return false
}

// Connection represents a customer database the admin panel operates on.
// Credential fields hold ciphertext when MasterEncryption is set, and either
// plaintext or server-key ciphertext otherwise.
type Connection struct {
	ID               string         `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Title            string         `gorm:"column:title" json:"title"`
	Type             ConnectionType `gorm:"column:type;type:varchar(32)" json:"type"`
	Host             string         `gorm:"column:host" json:"host"`
	Port             int            `gorm:"column:port" json:"port"`
	Username         string         `gorm:"column:username" json:"username"`
	Password         string         `gorm:"column:password;type:text" json:"-"`
	Database         string         `gorm:"column:database" json:"database"`
	Schema           string         `gorm:"column:schema" json:"schema"`
	SID              string         `gorm:"column:sid" json:"sid"`
	AuthSource       string         `gorm:"column:auth_source" json:"authSource"`
	SSH              bool           `gorm:"column:ssh" json:"ssh"`
	SSHHost          string         `gorm:"column:ssh_host" json:"sshHost"`
	SSHPort          int            `gorm:"column:ssh_port" json:"sshPort"`
	SSHUsername      string         `gorm:"column:ssh_username" json:"sshUsername"`
	SSHPrivateKey    string         `gorm:"column:ssh_private_key;type:text" json:"-"`
	SSHHostKey       string         `gorm:"column:ssh_host_key;type:text" json:"sshHostKey"` // authorized_keys or known_hosts line
	SSL              bool           `gorm:"column:ssl" json:"ssl"`
	Cert             string         `gorm:"column:cert;type:text" json:"-"`
	MasterEncryption bool           `gorm:"column:master_encryption" json:"masterEncryption"`
	MasterHash       string         `gorm:"column:master_hash" json:"-"` // bcrypt hash of the master password
	IsTestConnection bool           `gorm:"column:is_test_connection" json:"isTestConnection"`
	AuthorID         string         `gorm:"column:author_id" json:"authorId"`
	CreatedAt        time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName specifies the static table name for GORM.
func (Connection) TableName() string {
	return "connection"
}

// CredentialFields returns pointers to every field covered by credential encryption.
func (c *Connection) CredentialFields() map[string]*string {
	return map[string]*string{
		"host":          &c.Host,
		"username":      &c.Username,
		"password":      &c.Password,
		"database":      &c.Database,
		"schema":        &c.Schema,
		"sid":           &c.SID,
		"authSource":    &c.AuthSource,
		"sshHost":       &c.SSHHost,
		"sshUsername":   &c.SSHUsername,
		"sshPrivateKey": &c.SSHPrivateKey,
		"sshHostKey":    &c.SSHHostKey,
		"cert":          &c.Cert,
	}
}
