package repository

import (
	"dbadminapi/config"
	"dbadminapi/models"

	"gorm.io/gorm"
)

// ConnectionRepository provides data access operations for connection records.
type ConnectionRepository interface {
	FindByID(tx *gorm.DB, id string) (*models.Connection, error)
	FindByAgentTokenHash(tx *gorm.DB, tokenHash string) (*models.Connection, error)
	Create(tx *gorm.DB, conn *models.Connection) error
	Save(tx *gorm.DB, conn *models.Connection) error
	DeleteByID(tx *gorm.DB, id string) error
}

type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new connection repository instance.
func NewConnectionRepository() ConnectionRepository {
	return &connectionRepository{
		db: config.DB,
	}
}

// NewConnectionRepositoryWithDB creates a connection repository over an explicit connection.
func NewConnectionRepositoryWithDB(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) FindByID(tx *gorm.DB, id string) (*models.Connection, error) {
	db := tx
	if db == nil {
		db = r.db
	}

	var conn models.Connection
	if err := db.Where("id = ?", id).First(&conn).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) FindByAgentTokenHash(tx *gorm.DB, tokenHash string) (*models.Connection, error) {
	db := tx
	if db == nil {
		db = r.db
	}

	var conn models.Connection
	if err := db.Table(models.Connection{}.TableName()+" AS c").
		Select("c.*").
		Joins("JOIN agent AS a ON a.connection_id = c.id").
		Where("a.token_hash = ?", tokenHash).
		First(&conn).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) Create(tx *gorm.DB, conn *models.Connection) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(conn).Error
}

func (r *connectionRepository) Save(tx *gorm.DB, conn *models.Connection) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Save(conn).Error
}

func (r *connectionRepository) DeleteByID(tx *gorm.DB, id string) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Where("id = ?", id).Delete(&models.Connection{}).Error
}
