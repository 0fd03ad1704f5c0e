package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"dbadminapi/models"
	"dbadminapi/services/apperrors"
	"dbadminapi/services/dao"
	"dbadminapi/services/dao/daotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type finderFunc func(id, masterPwd string) (*models.Connection, error)

func (f finderFunc) FindAndDecryptConnection(ctx context.Context, tx *gorm.DB, id, masterPwd string) (*models.Connection, error) {
	return f(id, masterPwd)
}

func pgConnection(id, masterPwd string) (*models.Connection, error) {
	return &models.Connection{ID: id, Type: models.ConnectionTypePostgres, Host: "db", Port: 5432}, nil
}

func TestConnectionListsTablesSorted(t *testing.T) {
	d := &daotest.FakeDAO{
		GetTablesFn: func(ctx context.Context) ([]dao.Table, error) {
			return []dao.Table{{Name: "users"}, {Name: "accounts"}, {Name: "active_users", IsView: true}}, nil
		},
	}
	tester := NewTester(finderFunc(pgConnection), &daotest.Factory{D: d}, time.Second)

	res, err := tester.TestConnection(context.Background(), "c1", "", "u1")
	require.NoError(t, err)
	assert.True(t, res.Connected)
	assert.Equal(t, "connected successfully, 3 tables", res.Message)
	assert.Equal(t, []dao.Table{{Name: "accounts"}, {Name: "active_users", IsView: true}, {Name: "users"}}, res.Tables)
	assert.Equal(t, 1, d.Closed())
}

func TestConnectionUnreachableIsReported(t *testing.T) {
	d := &daotest.FakeDAO{
		GetTablesFn: func(ctx context.Context) ([]dao.Table, error) {
			return nil, errors.New("dial tcp db:5432: connection refused")
		},
	}
	res, err := NewTester(finderFunc(pgConnection), &daotest.Factory{D: d}, time.Second).
		TestConnection(context.Background(), "c1", "", "u1")
	require.NoError(t, err)
	assert.False(t, res.Connected)
	assert.Contains(t, res.Message, "connection refused")
	assert.NotNil(t, res.Tables)
	assert.Equal(t, 1, d.Closed())
}

func TestConnectionTimeout(t *testing.T) {
	d := &daotest.FakeDAO{
		GetTablesFn: func(ctx context.Context) ([]dao.Table, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	res, err := NewTester(finderFunc(pgConnection), &daotest.Factory{D: d}, 20*time.Millisecond).
		TestConnection(context.Background(), "c1", "", "u1")
	require.NoError(t, err)
	assert.False(t, res.Connected)
	assert.Equal(t, "no answer within 20ms", res.Message)
}

func TestConnectionResolveErrorsPassThrough(t *testing.T) {
	factory := &daotest.Factory{D: &daotest.FakeDAO{}}
	tester := NewTester(finderFunc(func(id, masterPwd string) (*models.Connection, error) {
		return nil, apperrors.MasterPasswordMissing()
	}), factory, time.Second)

	_, err := tester.TestConnection(context.Background(), "c1", "", "u1")
	assert.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(err))
	assert.Empty(t, factory.Conns)
}
