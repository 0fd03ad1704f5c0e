package repository

import (
	"dbadminapi/config"
	"dbadminapi/models"

	"gorm.io/gorm"
)

// CustomFieldRepository provides data access operations for templated custom fields.
type CustomFieldRepository interface {
	FindBySettingsID(tx *gorm.DB, settingsID uint) ([]models.CustomField, error)
	FindByID(tx *gorm.DB, settingsID, id uint) (*models.CustomField, error)
	Create(tx *gorm.DB, field *models.CustomField) error
	Save(tx *gorm.DB, field *models.CustomField) error
	DeleteByID(tx *gorm.DB, settingsID, id uint) error
}

type customFieldRepository struct {
	db *gorm.DB
}

// NewCustomFieldRepository creates a new custom field repository instance.
func NewCustomFieldRepository() CustomFieldRepository {
	return &customFieldRepository{
		db: config.DB,
	}
}

// NewCustomFieldRepositoryWithDB creates a custom field repository over an explicit connection.
func NewCustomFieldRepositoryWithDB(db *gorm.DB) CustomFieldRepository {
	return &customFieldRepository{db: db}
}

func (r *customFieldRepository) FindBySettingsID(tx *gorm.DB, settingsID uint) ([]models.CustomField, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var fields []models.CustomField
	if err := db.Where("settings_id = ?", settingsID).Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *customFieldRepository) FindByID(tx *gorm.DB, settingsID, id uint) (*models.CustomField, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var field models.CustomField
	if err := db.Where("settings_id = ? AND id = ?", settingsID, id).First(&field).Error; err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *customFieldRepository) Create(tx *gorm.DB, field *models.CustomField) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(field).Error
}

func (r *customFieldRepository) Save(tx *gorm.DB, field *models.CustomField) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Save(field).Error
}

func (r *customFieldRepository) DeleteByID(tx *gorm.DB, settingsID, id uint) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Where("settings_id = ? AND id = ?", settingsID, id).Delete(&models.CustomField{}).Error
}
