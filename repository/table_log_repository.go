package repository

import (
	"dbadminapi/config"
	"dbadminapi/models"

	"gorm.io/gorm"
)

// TableLogRepository persists row operation audit records. Records are append-only.
type TableLogRepository interface {
	Create(tx *gorm.DB, entry *models.TableLog) error
}

type tableLogRepository struct {
	db *gorm.DB
}

// NewTableLogRepository creates a new table log repository instance.
func NewTableLogRepository() TableLogRepository {
	return &tableLogRepository{
		db: config.DB,
	}
}

// NewTableLogRepositoryWithDB creates a table log repository over an explicit connection.
func NewTableLogRepositoryWithDB(db *gorm.DB) TableLogRepository {
	return &tableLogRepository{db: db}
}

func (r *tableLogRepository) Create(tx *gorm.DB, entry *models.TableLog) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(entry).Error
}
