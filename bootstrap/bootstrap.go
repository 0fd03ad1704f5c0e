package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"dbadminapi/config"
	"dbadminapi/models"
	"dbadminapi/pkg/logger"
	"dbadminapi/repository"
	"dbadminapi/services/encryption"
	"dbadminapi/services/sandbox"

	"gorm.io/gorm"
)

// SandboxConnectionID is the id of the demo connection served by the in-memory sandbox.
const SandboxConnectionID = "sandbox"

// Migrate creates or updates the metadata store tables.
func Migrate(db *gorm.DB) error {
	logger.Infof("Starting metadata store migration...")

	if err := db.AutoMigrate(
		&models.Connection{},
		&models.Agent{},
		&models.TableSettings{},
		&models.TableWidget{},
		&models.CustomField{},
		&models.TableLog{},
	); err != nil {
		logger.Errorf("Failed to migrate metadata store: %v", err)
		return fmt.Errorf("failed to migrate metadata store: %v", err)
	}

	logger.Infof("Metadata store migration completed successfully")
	return nil
}

// StartSandbox launches the demo MySQL sandbox, loads the demo schema and registers a
// test connection pointing at it. It returns nil when the sandbox is disabled.
func StartSandbox(ctx context.Context, repo repository.ConnectionRepository, enc *encryption.Encryptor) (*sandbox.Server, error) {
	if !config.Cfg.SandboxEnabled {
		return nil, nil
	}

	srv, err := sandbox.Start(ctx, config.Cfg.SandboxDatabase)
	if err != nil {
		logger.Errorf("Failed to start sandbox: %v", err)
		return nil, fmt.Errorf("failed to start sandbox: %v", err)
	}
	if err := srv.Exec(ctx, sandbox.DemoSchema...); err != nil {
		srv.Close()
		logger.Errorf("Failed to load sandbox schema: %v", err)
		return nil, fmt.Errorf("failed to load sandbox schema: %v", err)
	}

	if err := registerSandboxConnection(repo, enc, srv); err != nil {
		srv.Close()
		return nil, err
	}
	logger.Infof("Sandbox database %s listening on port %d", srv.Database, srv.Port)
	return srv, nil
}

func registerSandboxConnection(repo repository.ConnectionRepository, enc *encryption.Encryptor, srv *sandbox.Server) error {
	conn, err := enc.EncryptConnectionCredentials(srv.Connection(SandboxConnectionID, "Demo sandbox"), "")
	if err != nil {
		logger.Errorf("Failed to encrypt sandbox connection: %v", err)
		return fmt.Errorf("failed to encrypt sandbox connection: %v", err)
	}

	existing, err := repo.FindByID(nil, SandboxConnectionID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = repo.Create(nil, &conn)
	case err != nil:
	default:
		conn.CreatedAt = existing.CreatedAt
		err = repo.Save(nil, &conn)
	}
	if err != nil {
		logger.Errorf("Failed to register sandbox connection: %v", err)
		return fmt.Errorf("failed to register sandbox connection: %v", err)
	}
	logger.Infof("Registered sandbox connection %s", SandboxConnectionID)
	return nil
}
