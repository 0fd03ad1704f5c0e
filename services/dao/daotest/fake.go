// Package daotest provides a configurable in-memory DataAccessObject for tests.
package daotest

import (
	"context"
	"sync"

	"dbadminapi/models"
	"dbadminapi/services/dao"
)

// FakeDAO implements dao.DataAccessObject with overridable funcs. Unset funcs return
// zero values. Calls are recorded by method name.
type FakeDAO struct {
	GetTablesFn         func(ctx context.Context) ([]dao.Table, error)
	GetStructureFn      func(ctx context.Context, table string) ([]dao.ColumnStructure, error)
	GetPrimaryColumnsFn func(ctx context.Context, table string) ([]dao.PrimaryColumn, error)
	GetForeignKeysFn    func(ctx context.Context, table string) ([]dao.ForeignKey, error)
	GetRowFn            func(ctx context.Context, table string, pk dao.Row, settings *models.TableSettings) (dao.Row, error)
	AddRowFn            func(ctx context.Context, table string, row dao.Row) (dao.Row, error)
	UpdateRowFn         func(ctx context.Context, table string, row, pk dao.Row) (dao.Row, error)
	DeleteRowFn         func(ctx context.Context, table string, pk dao.Row) (dao.Row, error)

	mu     sync.Mutex
	calls  []string
	closed int
}

func (f *FakeDAO) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

// Calls returns the recorded method names in call order.
func (f *FakeDAO) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Called reports how many times method name was called.
func (f *FakeDAO) Called(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

// Closed reports how many times Close was called.
func (f *FakeDAO) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeDAO) GetTablesFromDB(ctx context.Context) ([]dao.Table, error) {
	f.record("GetTablesFromDB")
	if f.GetTablesFn == nil {
		return nil, nil
	}
	return f.GetTablesFn(ctx)
}

func (f *FakeDAO) GetTableStructure(ctx context.Context, tableName, userEmail string) ([]dao.ColumnStructure, error) {
	f.record("GetTableStructure")
	if f.GetStructureFn == nil {
		return nil, nil
	}
	return f.GetStructureFn(ctx, tableName)
}

func (f *FakeDAO) GetTablePrimaryColumns(ctx context.Context, tableName, userEmail string) ([]dao.PrimaryColumn, error) {
	f.record("GetTablePrimaryColumns")
	if f.GetPrimaryColumnsFn == nil {
		return nil, nil
	}
	return f.GetPrimaryColumnsFn(ctx, tableName)
}

func (f *FakeDAO) GetTableForeignKeys(ctx context.Context, tableName, userEmail string) ([]dao.ForeignKey, error) {
	f.record("GetTableForeignKeys")
	if f.GetForeignKeysFn == nil {
		return nil, nil
	}
	return f.GetForeignKeysFn(ctx, tableName)
}

func (f *FakeDAO) GetRowByPrimaryKey(ctx context.Context, tableName string, primaryKey dao.Row, settings *models.TableSettings, userEmail string) (dao.Row, error) {
	f.record("GetRowByPrimaryKey")
	if f.GetRowFn == nil {
		return nil, nil
	}
	return f.GetRowFn(ctx, tableName, primaryKey, settings)
}

func (f *FakeDAO) AddRowInTable(ctx context.Context, tableName string, row dao.Row, userEmail string) (dao.Row, error) {
	f.record("AddRowInTable")
	if f.AddRowFn == nil {
		return dao.Row{}, nil
	}
	return f.AddRowFn(ctx, tableName, row)
}

func (f *FakeDAO) UpdateRowInTable(ctx context.Context, tableName string, row, primaryKey dao.Row, userEmail string) (dao.Row, error) {
	f.record("UpdateRowInTable")
	if f.UpdateRowFn == nil {
		return primaryKey.Clone(), nil
	}
	return f.UpdateRowFn(ctx, tableName, row, primaryKey)
}

func (f *FakeDAO) DeleteRowInTable(ctx context.Context, tableName string, primaryKey dao.Row, userEmail string) (dao.Row, error) {
	f.record("DeleteRowInTable")
	if f.DeleteRowFn == nil {
		return primaryKey.Clone(), nil
	}
	return f.DeleteRowFn(ctx, tableName, primaryKey)
}

func (f *FakeDAO) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// Factory returns D for every connection and records the connections it was asked for.
type Factory struct {
	D   dao.DataAccessObject
	Err error

	mu    sync.Mutex
	Conns []models.Connection
}

func (f *Factory) CreateDataAccessObject(conn models.Connection, userID string) (dao.DataAccessObject, error) {
	f.mu.Lock()
	f.Conns = append(f.Conns, conn)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.D, nil
}

// Users returns a FakeDAO describing a "users" table {id serial pk, email varchar unique}.
func Users() *FakeDAO {
	return &FakeDAO{
		GetStructureFn: func(ctx context.Context, table string) ([]dao.ColumnStructure, error) {
			def := "nextval('users_id_seq')"
			return []dao.ColumnStructure{
				{ColumnName: "id", DataType: "integer", ColumnDefault: &def},
				{ColumnName: "email", DataType: "character varying"},
			}, nil
		},
		GetPrimaryColumnsFn: func(ctx context.Context, table string) ([]dao.PrimaryColumn, error) {
			return []dao.PrimaryColumn{{ColumnName: "id", DataType: "integer"}}, nil
		},
	}
}
