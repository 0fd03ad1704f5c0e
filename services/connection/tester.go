package connection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"dbadminapi/config"
	"dbadminapi/models"
	"dbadminapi/pkg/logger"
	"dbadminapi/services/dao"

	"gorm.io/gorm"
)

// Finder resolves a connection with decrypted credentials.
type Finder interface {
	FindAndDecryptConnection(ctx context.Context, tx *gorm.DB, id, masterPwd string) (*models.Connection, error)
}

// TestResult reports whether the target database answered and what it holds.
type TestResult struct {
	Connected bool        `json:"connected"`
	Message   string      `json:"message"`
	Tables    []dao.Table `json:"tables"`
}

// Tester opens a connection and lists its tables.
type Tester struct {
	conns   Finder
	factory dao.Factory
	timeout time.Duration
}

// NewTester creates a tester. A zero timeout falls back to config.Cfg.DAOTimeout.
func NewTester(conns Finder, factory dao.Factory, timeout time.Duration) *Tester {
	if timeout <= 0 {
		timeout = config.Cfg.DAOTimeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Tester{conns: conns, factory: factory, timeout: timeout}
}

// TestConnection lists the tables of connection id. Resolution and authentication
// failures are returned as errors; a database that cannot be reached is reported in
// the result with Connected unset.
func (t *Tester) TestConnection(ctx context.Context, id, masterPwd, userID string) (*TestResult, error) {
	conn, err := t.conns.FindAndDecryptConnection(ctx, nil, id, masterPwd)
	if err != nil {
		return nil, err
	}

	logger.Infof("Testing connection: id=%s, type=%s, host=%s:%d", conn.ID, conn.Type, conn.Host, conn.Port)

	d, err := t.factory.CreateDataAccessObject(*conn, userID)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	tables, err := d.GetTablesFromDB(callCtx)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("no answer within %v", t.timeout)
		}
		logger.Warnf("Connection test failed for id=%s: %s", id, msg)
		return &TestResult{Message: msg, Tables: []dao.Table{}}, nil
	}

	if tables == nil {
		tables = []dao.Table{}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	logger.Infof("Connection test successful for id=%s: %d tables", id, len(tables))
	return &TestResult{
		Connected: true,
		Message:   fmt.Sprintf("connected successfully, %d tables", len(tables)),
		Tables:    tables,
	}, nil
}
