package repository

import (
	"dbadminapi/config"
	"dbadminapi/models"

	"gorm.io/gorm"
)

// AgentRepository stores agent token hashes bound to connections.
type AgentRepository interface {
	Create(tx *gorm.DB, agent *models.Agent) error
	DeleteByConnectionID(tx *gorm.DB, connectionID string) error
}

type agentRepository struct {
	db *gorm.DB
}

// NewAgentRepository creates a new agent repository instance.
func NewAgentRepository() AgentRepository {
	return &agentRepository{
		db: config.DB,
	}
}

// NewAgentRepositoryWithDB creates an agent repository over an explicit connection.
func NewAgentRepositoryWithDB(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) Create(tx *gorm.DB, agent *models.Agent) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(agent).Error
}

func (r *agentRepository) DeleteByConnectionID(tx *gorm.DB, connectionID string) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Where("connection_id = ?", connectionID).Delete(&models.Agent{}).Error
}
