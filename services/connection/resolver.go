// Package connection resolves stored connections into decrypted, per-invocation
// credential sets and manages master passwords and agent tokens.
package connection

import (
	"context"
	"errors"
	"fmt"

	"dbadminapi/models"
	"dbadminapi/pkg/logger"
	"dbadminapi/services/apperrors"
	"dbadminapi/services/encryption"
	"dbadminapi/services/usecase"

	"gorm.io/gorm"
)

// Store is the subset of the connection repository the resolver needs.
type Store interface {
	FindByID(tx *gorm.DB, id string) (*models.Connection, error)
	FindByAgentTokenHash(tx *gorm.DB, tokenHash string) (*models.Connection, error)
	Save(tx *gorm.DB, conn *models.Connection) error
}

// AgentStore persists agent token hashes.
type AgentStore interface {
	Create(tx *gorm.DB, agent *models.Agent) error
	DeleteByConnectionID(tx *gorm.DB, connectionID string) error
}

// Resolver loads and decrypts connections. The returned connection is a fresh copy owned
// by the caller and is never cached.
type Resolver struct {
	conns  Store
	agents AgentStore
	enc    *encryption.Encryptor

	changeMasterPassword *usecase.UseCase[ChangeMasterPasswordInput, struct{}]
	createAgentToken     *usecase.UseCase[string, string]
}

// NewResolver creates a resolver. begin opens the transactions used by the mutating use cases.
func NewResolver(conns Store, agents AgentStore, enc *encryption.Encryptor, begin usecase.Beginner) *Resolver {
	r := &Resolver{conns: conns, agents: agents, enc: enc}
	r.changeMasterPassword = usecase.New("change_master_password", begin, r.changeMasterPasswordImpl)
	r.createAgentToken = usecase.New("create_agent_token", begin, r.createAgentTokenImpl)
	return r
}

func (r *Resolver) find(tx *gorm.DB, id string) (*models.Connection, error) {
	conn, err := r.conns.FindByID(tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ConnectionNotFound(id)
		}
		return nil, apperrors.OperationFailed(fmt.Errorf("load connection %s: %w", id, err))
	}
	return conn, nil
}

// FindAndDecryptConnection loads connection id and decrypts its credentials. Under master
// encryption a missing or wrong master password fails with an authentication error and
// no credential is returned.
func (r *Resolver) FindAndDecryptConnection(ctx context.Context, tx *gorm.DB, id, masterPwd string) (*models.Connection, error) {
	conn, err := r.find(tx, id)
	if err != nil {
		return nil, err
	}
	return r.decrypt(*conn, masterPwd)
}

func (r *Resolver) decrypt(conn models.Connection, masterPwd string) (*models.Connection, error) {
	if conn.MasterEncryption {
		if masterPwd == "" {
			return nil, apperrors.MasterPasswordMissing()
		}
		if conn.MasterHash != "" && !encryption.VerifyMasterPassword(conn.MasterHash, masterPwd) {
			return nil, apperrors.MasterPasswordIncorrect(nil)
		}
	}

	dec, err := r.enc.DecryptConnectionCredentials(conn, masterPwd)
	if err != nil {
		if conn.MasterEncryption {
			return nil, apperrors.MasterPasswordIncorrect(err)
		}
		logger.Errorf("Server-key decryption failed for connection %s: %v", conn.ID, err)
		return nil, apperrors.OperationFailed(fmt.Errorf("decrypt connection %s: %w", conn.ID, err))
	}
	return &dec, nil
}

// FindConnectionByAgentToken looks a connection up by the HMAC of an agent token. Master
// encrypted credentials are returned as stored since the agent holds its own credentials.
func (r *Resolver) FindConnectionByAgentToken(ctx context.Context, tx *gorm.DB, token string) (*models.Connection, error) {
	if token == "" {
		return nil, apperrors.ConnectionNotFound("")
	}
	conn, err := r.conns.FindByAgentTokenHash(tx, r.enc.HashDataHMAC(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ConnectionNotFound("agent token")
		}
		return nil, apperrors.OperationFailed(fmt.Errorf("load connection by agent token: %w", err))
	}
	if conn.MasterEncryption {
		return conn, nil
	}
	return r.decrypt(*conn, "")
}

// ChangeMasterPasswordInput identifies the connection and both passwords. OldPassword is
// ignored when the connection is not master encrypted yet.
type ChangeMasterPasswordInput struct {
	ConnectionID string
	OldPassword  string
	NewPassword  string
}

// ChangeMasterPassword re-encrypts every credential of a connection under a new master
// password inside one transaction, enabling master encryption if it was off.
func (r *Resolver) ChangeMasterPassword(ctx context.Context, in ChangeMasterPasswordInput) error {
	_, err := r.changeMasterPassword.Execute(ctx, in, usecase.InTransactionOn)
	return err
}

func (r *Resolver) changeMasterPasswordImpl(ctx context.Context, tx *gorm.DB, in ChangeMasterPasswordInput) (struct{}, error) {
	if in.NewPassword == "" {
		return struct{}{}, apperrors.ValidationFailed([]string{"new master password is empty"})
	}
	stored, err := r.find(tx, in.ConnectionID)
	if err != nil {
		return struct{}{}, err
	}
	plain, err := r.decrypt(*stored, in.OldPassword)
	if err != nil {
		return struct{}{}, err
	}

	plain.MasterEncryption = true
	reenc, err := r.enc.EncryptConnectionCredentials(*plain, in.NewPassword)
	if err != nil {
		return struct{}{}, apperrors.OperationFailed(err)
	}
	if reenc.MasterHash, err = encryption.HashMasterPassword(in.NewPassword); err != nil {
		return struct{}{}, apperrors.OperationFailed(err)
	}
	if err := r.conns.Save(tx, &reenc); err != nil {
		return struct{}{}, apperrors.OperationFailed(fmt.Errorf("save connection %s: %w", in.ConnectionID, err))
	}
	logger.Infof("Master password changed for connection %s", in.ConnectionID)
	return struct{}{}, nil
}

// CreateAgentToken issues a new token for an agent connection, replacing any previous one.
// The raw token is returned once; only its HMAC is stored.
func (r *Resolver) CreateAgentToken(ctx context.Context, connectionID string) (string, error) {
	return r.createAgentToken.Execute(ctx, connectionID, usecase.InTransactionOn)
}

func (r *Resolver) createAgentTokenImpl(ctx context.Context, tx *gorm.DB, connectionID string) (string, error) {
	conn, err := r.find(tx, connectionID)
	if err != nil {
		return "", err
	}
	if !conn.Type.IsAgent() {
		return "", apperrors.Forbidden(fmt.Sprintf("connection %s is not an agent connection", connectionID))
	}

	token, err := encryption.GenerateAgentToken()
	if err != nil {
		return "", apperrors.OperationFailed(err)
	}
	if err := r.agents.DeleteByConnectionID(tx, connectionID); err != nil {
		return "", apperrors.OperationFailed(err)
	}
	if err := r.agents.Create(tx, &models.Agent{ConnectionID: connectionID, TokenHash: r.enc.HashDataHMAC(token)}); err != nil {
		return "", apperrors.OperationFailed(err)
	}
	return token, nil
}
