package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"dbadminapi/config"
	"dbadminapi/models"
	"dbadminapi/services/encryption"
	"dbadminapi/services/sandbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memConnections struct {
	byID    map[string]models.Connection
	creates int
	saves   int
	err     error
}

func (m *memConnections) FindByID(tx *gorm.DB, id string) (*models.Connection, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (m *memConnections) FindByAgentTokenHash(tx *gorm.DB, tokenHash string) (*models.Connection, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *memConnections) Create(tx *gorm.DB, conn *models.Connection) error {
	m.creates++
	m.byID[conn.ID] = *conn
	return nil
}

func (m *memConnections) Save(tx *gorm.DB, conn *models.Connection) error {
	m.saves++
	m.byID[conn.ID] = *conn
	return nil
}

func (m *memConnections) DeleteByID(tx *gorm.DB, id string) error {
	delete(m.byID, id)
	return nil
}

func TestStartSandboxDisabled(t *testing.T) {
	config.Cfg = config.AppConfig{}
	srv, err := StartSandbox(context.Background(), &memConnections{}, nil)
	require.NoError(t, err)
	assert.Nil(t, srv)
}

func TestRegisterSandboxConnectionUpserts(t *testing.T) {
	enc, err := encryption.New("test-private-key", encryption.WithScryptCost(10))
	require.NoError(t, err)
	repo := &memConnections{byID: map[string]models.Connection{}}
	srv := &sandbox.Server{Port: 33061, Database: "demo"}

	require.NoError(t, registerSandboxConnection(repo, enc, srv))
	assert.Equal(t, 1, repo.creates)

	stored := repo.byID[SandboxConnectionID]
	assert.True(t, stored.IsTestConnection)
	assert.Equal(t, 33061, stored.Port)
	assert.True(t, encryption.IsServerCiphertext(stored.Username))

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stored.CreatedAt = created
	repo.byID[SandboxConnectionID] = stored

	require.NoError(t, registerSandboxConnection(repo, enc, srv))
	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, 1, repo.saves)
	assert.Equal(t, created, repo.byID[SandboxConnectionID].CreatedAt)

	plain, err := enc.DecryptConnectionCredentials(repo.byID[SandboxConnectionID], "")
	require.NoError(t, err)
	assert.Equal(t, "root", plain.Username)
}

func TestRegisterSandboxConnectionLookupFailure(t *testing.T) {
	enc, err := encryption.New("test-private-key")
	require.NoError(t, err)
	repo := &memConnections{byID: map[string]models.Connection{}, err: errors.New("db down")}

	err = registerSandboxConnection(repo, enc, &sandbox.Server{Database: "demo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Zero(t, repo.creates)
}
