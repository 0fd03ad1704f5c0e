// Package sandbox runs an in-memory MySQL-compatible server used to back test
// connections, so demo traffic never touches a customer database.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	sqle "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/memory"
	"github.com/dolthub/go-mysql-server/server"
	"github.com/dolthub/go-mysql-server/sql"

	"dbadminapi/models"
	"dbadminapi/pkg/logger"
)

// Server is a running in-memory MySQL server holding a single database.
type Server struct {
	srv      *server.Server
	engine   *sqle.Engine
	provider *memory.DbProvider
	Port     int
	Database string
	cancel   context.CancelFunc
}

// Start launches a server on a free localhost port and waits until it accepts connections.
func Start(ctx context.Context, database string) (*Server, error) {
	port, err := GetFreePort()
	if err != nil {
		return nil, fmt.Errorf("failed to get free port: %w", err)
	}

	db := memory.NewDatabase(database)
	provider := memory.NewDBProvider(db)
	engine := sqle.NewDefault(provider)

	cfg := server.Config{
		Protocol: "tcp",
		Address:  fmt.Sprintf("localhost:%d", port),
	}
	srv, err := server.NewServer(cfg, engine, sql.NewContext, memory.NewSessionBuilder(provider), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Errorf("sandbox server %s stopped: %v", database, err)
		}
	}()
	go func() {
		<-serverCtx.Done()
		srv.Close()
	}()

	readyCtx, readyCancel := context.WithTimeout(ctx, 5*time.Second)
	defer readyCancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-readyCtx.Done():
			cancel()
			return nil, fmt.Errorf("sandbox server %s failed to start: %w", database, readyCtx.Err())
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", cfg.Address, 100*time.Millisecond)
			if err == nil {
				conn.Close()
				logger.Infof("Started sandbox MySQL server on port %d for database %s", port, database)
				return &Server{
					srv:      srv,
					engine:   engine,
					provider: provider,
					Port:     port,
					Database: database,
					cancel:   cancel,
				}, nil
			}
		}
	}
}

// Exec runs statements in order against the sandbox database, stopping at the first error.
func (s *Server) Exec(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if _, err := s.Query(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Query runs one statement directly on the engine and returns its rows keyed by column.
func (s *Server) Query(ctx context.Context, query string) ([]map[string]interface{}, error) {
	session := memory.NewSession(sql.NewBaseSession(), s.provider)
	sqlCtx := sql.NewContext(ctx, sql.WithSession(session))
	sqlCtx.SetCurrentDatabase(s.Database)

	schema, rowIter, _, err := s.engine.Query(sqlCtx, query)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rowIter.Close(sqlCtx)

	results := []map[string]interface{}{}
	for {
		row, err := rowIter.Next(sqlCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch row: %w", err)
		}
		rowMap := make(map[string]interface{}, len(schema))
		for i, col := range schema {
			rowMap[col.Name] = row[i]
		}
		results = append(results, rowMap)
	}
	return results, nil
}

// Connection returns a plaintext test connection record pointing at the sandbox.
func (s *Server) Connection(id, title string) models.Connection {
	return models.Connection{
		ID:               id,
		Title:            title,
		Type:             models.ConnectionTypeMySQL,
		Host:             "127.0.0.1",
		Port:             s.Port,
		Username:         "root",
		Database:         s.Database,
		IsTestConnection: true,
	}
}

// Close shuts the server down.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.srv.Close(); err != nil {
		return fmt.Errorf("failed to close sandbox server: %w", err)
	}
	logger.Infof("Closed sandbox MySQL server for database %s", s.Database)
	return nil
}

// GetFreePort finds an available TCP port.
func GetFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port, nil
}
