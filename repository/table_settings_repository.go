package repository

import (
	"errors"

	"dbadminapi/config"
	"dbadminapi/models"

	"gorm.io/gorm"
)

// TableSettingsRepository provides data access operations for per-table settings.
type TableSettingsRepository interface {
	// FindByConnectionAndTable returns nil, nil when the table has no settings yet.
	FindByConnectionAndTable(tx *gorm.DB, connectionID, tableName string) (*models.TableSettings, error)
	Create(tx *gorm.DB, settings *models.TableSettings) error
	Save(tx *gorm.DB, settings *models.TableSettings) error
	DeleteByID(tx *gorm.DB, id uint) error
}

type tableSettingsRepository struct {
	db *gorm.DB
}

// NewTableSettingsRepository creates a new table settings repository instance.
func NewTableSettingsRepository() TableSettingsRepository {
	return &tableSettingsRepository{
		db: config.DB,
	}
}

// NewTableSettingsRepositoryWithDB creates a table settings repository over an explicit connection.
func NewTableSettingsRepositoryWithDB(db *gorm.DB) TableSettingsRepository {
	return &tableSettingsRepository{db: db}
}

func (r *tableSettingsRepository) FindByConnectionAndTable(tx *gorm.DB, connectionID, tableName string) (*models.TableSettings, error) {
	db := tx
	if db == nil {
		db = r.db
	}

	var settings models.TableSettings
	err := db.Where("connection_id = ? AND table_name = ?", connectionID, tableName).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *tableSettingsRepository) Create(tx *gorm.DB, settings *models.TableSettings) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(settings).Error
}

func (r *tableSettingsRepository) Save(tx *gorm.DB, settings *models.TableSettings) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Save(settings).Error
}

func (r *tableSettingsRepository) DeleteByID(tx *gorm.DB, id uint) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.TableSettings{}, id).Error
}
