package sandbox

import (
	"context"
	"testing"

	"dbadminapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFreePort(t *testing.T) {
	port, err := GetFreePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
}

func TestStartSeedAndQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a MySQL server")
	}
	ctx := context.Background()

	s, err := Start(ctx, "demo")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Exec(ctx, DemoSchema...))

	rows, err := s.Query(ctx, "SELECT email FROM customers ORDER BY id")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ada@example.com", rows[0]["email"])

	conn := s.Connection("sandbox", "Demo")
	assert.Equal(t, models.ConnectionTypeMySQL, conn.Type)
	assert.Equal(t, s.Port, conn.Port)
	assert.Equal(t, "demo", conn.Database)
	assert.True(t, conn.IsTestConnection)
}

func TestExecStopsAtFirstError(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a MySQL server")
	}
	ctx := context.Background()

	s, err := Start(ctx, "broken")
	require.NoError(t, err)
	defer s.Close()

	err = s.Exec(ctx, "CREATE TABLE t (id INT PRIMARY KEY)", "NOT SQL", "CREATE TABLE u (id INT PRIMARY KEY)")
	require.Error(t, err)

	_, err = s.Query(ctx, "SELECT * FROM u")
	assert.Error(t, err)
}
