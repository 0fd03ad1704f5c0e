package repository

import (
	"context"
	"errors"
	"testing"

	"dbadminapi/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestTableSettingsFindReturnsNilWhenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTableSettingsRepositoryWithDB(db)

	mock.ExpectQuery("SELECT \\* FROM `table_settings`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "connection_id", "table_name"}))

	settings, err := repo.FindByConnectionAndTable(nil, "conn-1", "users")
	require.NoError(t, err)
	assert.Nil(t, settings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableSettingsFindReturnsRecord(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTableSettingsRepositoryWithDB(db)

	mock.ExpectQuery("SELECT \\* FROM `table_settings`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "connection_id", "table_name", "readonly_fields", "can_add"}).
			AddRow(3, "conn-1", "users", `["created_at"]`, false))

	settings, err := repo.FindByConnectionAndTable(nil, "conn-1", "users")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, uint(3), settings.ID)
	assert.Equal(t, []string{"created_at"}, []string(settings.ReadonlyFields))
	assert.False(t, settings.AllowsAdd())
	assert.True(t, settings.AllowsUpdate())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableSettingsFindPropagatesErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTableSettingsRepositoryWithDB(db)

	mock.ExpectQuery("SELECT \\* FROM `table_settings`").WillReturnError(errors.New("connection reset"))

	settings, err := repo.FindByConnectionAndTable(nil, "conn-1", "users")
	assert.Error(t, err)
	assert.Nil(t, settings)
}

func TestConnectionFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConnectionRepositoryWithDB(db)

	mock.ExpectQuery("SELECT \\* FROM `connection`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	conn, err := repo.FindByID(nil, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, conn)
}

func TestTableLogCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTableLogRepositoryWithDB(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `table_logs`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry := &models.TableLog{
		ConnectionID:          "conn-1",
		Table:                 "users",
		OperationType:         models.LogOperationAddRow,
		OperationStatusResult: models.OperationResultSuccessfully,
	}
	require.NoError(t, repo.Create(nil, entry))
	assert.Equal(t, uint(1), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionCommitThenRelease(t *testing.T) {
	db, mock := newMockDB(t)
	base := NewBaseRepositoryWithDB(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := base.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	tx.Release()
	tx.Release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionReleaseWithoutCommitRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	base := NewBaseRepositoryWithDB(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := base.Begin(context.Background())
	require.NoError(t, err)
	tx.Release()

	assert.NoError(t, mock.ExpectationsWereMet())
}
