package dao

import (
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"
)

// ErrNoRowsAffected is returned by update and delete when the primary key matched nothing.
var ErrNoRowsAffected = errors.New("no rows affected")

// IsDuplicateKeyError detects unique constraint violations across engines, including
// errors relayed as text by an agent.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	var mssqlErr mssql.Error
	if errors.As(err, &mssqlErr) {
		return mssqlErr.Number == 2627 || mssqlErr.Number == 2601
	}

	msg := err.Error()
	patterns := []string{
		"duplicate key",              // postgres, mssql text
		"violates unique constraint", // postgres
		"Duplicate entry",            // mysql
		"Violation of UNIQUE KEY",    // mssql
		"Violation of PRIMARY KEY",   // mssql
		"ORA-00001",                  // oracle
		"UNIQUE constraint failed",   // sqlite
		"duplicate primary key",      // go-mysql-server
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	lower := strings.ToLower(msg)
	return strings.Contains(lower, "duplicate") &&
		(strings.Contains(lower, "key") || strings.Contains(lower, "unique"))
}
