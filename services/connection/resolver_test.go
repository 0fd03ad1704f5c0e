package connection

import (
	"context"
	"errors"
	"testing"

	"dbadminapi/models"
	"dbadminapi/repository/repotest"
	"dbadminapi/services/apperrors"
	"dbadminapi/services/encryption"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memStore struct {
	conns  map[string]models.Connection
	agents []models.Agent
	err    error
	saved  int
}

func newMemStore(conns ...models.Connection) *memStore {
	s := &memStore{conns: map[string]models.Connection{}}
	for _, c := range conns {
		s.conns[c.ID] = c
	}
	return s
}

func (s *memStore) FindByID(tx *gorm.DB, id string) (*models.Connection, error) {
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.conns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (s *memStore) FindByAgentTokenHash(tx *gorm.DB, tokenHash string) (*models.Connection, error) {
	for _, a := range s.agents {
		if a.TokenHash == tokenHash {
			c := s.conns[a.ConnectionID]
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) Save(tx *gorm.DB, conn *models.Connection) error {
	s.saved++
	s.conns[conn.ID] = *conn
	return nil
}

func (s *memStore) Create(tx *gorm.DB, agent *models.Agent) error {
	s.agents = append(s.agents, *agent)
	return nil
}

func (s *memStore) DeleteByConnectionID(tx *gorm.DB, connectionID string) error {
	kept := s.agents[:0]
	for _, a := range s.agents {
		if a.ConnectionID != connectionID {
			kept = append(kept, a)
		}
	}
	s.agents = kept
	return nil
}

func newEncryptor(t *testing.T) *encryption.Encryptor {
	t.Helper()
	enc, err := encryption.New("test-private-key", encryption.WithScryptCost(4))
	require.NoError(t, err)
	return enc
}

func masterConnection(t *testing.T, enc *encryption.Encryptor, pwd string, withHash bool) models.Connection {
	t.Helper()
	plain := models.Connection{
		ID: "c1", Type: models.ConnectionTypePostgres, Host: "db.internal", Port: 5432,
		Username: "admin", Password: "s3cret", Database: "app", MasterEncryption: true,
	}
	stored, err := enc.EncryptConnectionCredentials(plain, pwd)
	require.NoError(t, err)
	if withHash {
		stored.MasterHash, err = encryption.HashMasterPassword(pwd)
		require.NoError(t, err)
	}
	return stored
}

func TestFindAndDecryptConnection(t *testing.T) {
	enc := newEncryptor(t)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		r := NewResolver(newMemStore(), nil, enc, &repotest.Beginner{})
		_, err := r.FindAndDecryptConnection(ctx, nil, "missing", "")
		assert.Equal(t, apperrors.KindConnectionNotFound, apperrors.KindOf(err))
	})

	t.Run("store failure", func(t *testing.T) {
		s := newMemStore()
		s.err = errors.New("db down")
		r := NewResolver(s, nil, enc, &repotest.Beginner{})
		_, err := r.FindAndDecryptConnection(ctx, nil, "c1", "")
		assert.Equal(t, apperrors.KindOperationFailed, apperrors.KindOf(err))
	})

	t.Run("master password decrypts", func(t *testing.T) {
		r := NewResolver(newMemStore(masterConnection(t, enc, "right", true)), nil, enc, &repotest.Beginner{})
		conn, err := r.FindAndDecryptConnection(ctx, nil, "c1", "right")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", conn.Password)
		assert.Equal(t, "db.internal", conn.Host)
		assert.Equal(t, 5432, conn.Port)
	})

	t.Run("missing master password", func(t *testing.T) {
		r := NewResolver(newMemStore(masterConnection(t, enc, "right", true)), nil, enc, &repotest.Beginner{})
		_, err := r.FindAndDecryptConnection(ctx, nil, "c1", "")
		assert.Equal(t, apperrors.CodeMasterPasswordMissing, apperrors.CodeOf(err))
		assert.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(err))
	})

	t.Run("wrong master password fails fast on hash", func(t *testing.T) {
		r := NewResolver(newMemStore(masterConnection(t, enc, "right", true)), nil, enc, &repotest.Beginner{})
		conn, err := r.FindAndDecryptConnection(ctx, nil, "c1", "wrong")
		assert.Nil(t, conn)
		assert.Equal(t, apperrors.CodeMasterPasswordIncorrect, apperrors.CodeOf(err))
	})

	t.Run("wrong master password without hash fails on authentication", func(t *testing.T) {
		r := NewResolver(newMemStore(masterConnection(t, enc, "right", false)), nil, enc, &repotest.Beginner{})
		conn, err := r.FindAndDecryptConnection(ctx, nil, "c1", "wrong")
		assert.Nil(t, conn)
		assert.Equal(t, apperrors.CodeMasterPasswordIncorrect, apperrors.CodeOf(err))
		assert.ErrorIs(t, err, encryption.ErrAuthenticationFailed)
	})

	t.Run("server key and plaintext fields", func(t *testing.T) {
		serverEnc, err := enc.EncryptData("pw")
		require.NoError(t, err)
		stored := models.Connection{ID: "c2", Type: models.ConnectionTypeMySQL, Host: "plain-host", Password: serverEnc}
		r := NewResolver(newMemStore(stored), nil, enc, &repotest.Beginner{})

		conn, err := r.FindAndDecryptConnection(ctx, nil, "c2", "ignored")
		require.NoError(t, err)
		assert.Equal(t, "pw", conn.Password)
		assert.Equal(t, "plain-host", conn.Host)
	})
}

func TestChangeMasterPassword(t *testing.T) {
	enc := newEncryptor(t)
	ctx := context.Background()
	store := newMemStore(masterConnection(t, enc, "old", true))
	tx := &repotest.Beginner{}
	r := NewResolver(store, store, enc, tx)

	require.NoError(t, r.ChangeMasterPassword(ctx, ChangeMasterPasswordInput{ConnectionID: "c1", OldPassword: "old", NewPassword: "new"}))
	assert.Equal(t, []string{"begin", "commit", "release"}, tx.Events())

	_, err := r.FindAndDecryptConnection(ctx, nil, "c1", "old")
	assert.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(err))

	conn, err := r.FindAndDecryptConnection(ctx, nil, "c1", "new")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", conn.Password)
}

func TestChangeMasterPasswordWithWrongOldPasswordRollsBack(t *testing.T) {
	enc := newEncryptor(t)
	store := newMemStore(masterConnection(t, enc, "old", true))
	tx := &repotest.Beginner{}
	r := NewResolver(store, store, enc, tx)

	err := r.ChangeMasterPassword(context.Background(), ChangeMasterPasswordInput{ConnectionID: "c1", OldPassword: "nope", NewPassword: "new"})
	assert.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(err))
	assert.Equal(t, []string{"begin", "rollback", "release"}, tx.Events())
	assert.Zero(t, store.saved)
}

func TestEnableMasterEncryption(t *testing.T) {
	enc := newEncryptor(t)
	store := newMemStore(models.Connection{ID: "c3", Type: models.ConnectionTypePostgres, Password: "plain"})
	r := NewResolver(store, store, enc, &repotest.Beginner{})

	require.NoError(t, r.ChangeMasterPassword(context.Background(), ChangeMasterPasswordInput{ConnectionID: "c3", NewPassword: "first"}))
	stored := store.conns["c3"]
	assert.True(t, stored.MasterEncryption)
	assert.True(t, encryption.IsMasterCiphertext(stored.Password))

	conn, err := r.FindAndDecryptConnection(context.Background(), nil, "c3", "first")
	require.NoError(t, err)
	assert.Equal(t, "plain", conn.Password)
}

func TestAgentTokens(t *testing.T) {
	enc := newEncryptor(t)
	ctx := context.Background()
	store := newMemStore(
		models.Connection{ID: "agent-1", Type: models.ConnectionTypeAgentMySQL, Username: "root"},
		models.Connection{ID: "direct", Type: models.ConnectionTypeMySQL},
	)
	r := NewResolver(store, store, enc, &repotest.Beginner{})

	first, err := r.CreateAgentToken(ctx, "agent-1")
	require.NoError(t, err)
	second, err := r.CreateAgentToken(ctx, "agent-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	require.Len(t, store.agents, 1)
	assert.NotEqual(t, second, store.agents[0].TokenHash)

	conn, err := r.FindConnectionByAgentToken(ctx, nil, second)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", conn.ID)

	_, err = r.FindConnectionByAgentToken(ctx, nil, first)
	assert.Equal(t, apperrors.KindConnectionNotFound, apperrors.KindOf(err))

	_, err = r.CreateAgentToken(ctx, "direct")
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}
