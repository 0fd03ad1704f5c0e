package repository

import (
	"dbadminapi/config"
	"dbadminapi/models"

	"gorm.io/gorm"
)

// TableWidgetRepository provides data access operations for column widgets.
type TableWidgetRepository interface {
	FindByConnectionAndTable(tx *gorm.DB, connectionID, tableName string) ([]models.TableWidget, error)
	FindBySettingsID(tx *gorm.DB, settingsID uint) ([]models.TableWidget, error)
	ReplaceForSettings(tx *gorm.DB, settingsID uint, widgets []models.TableWidget) error
	DeleteByID(tx *gorm.DB, settingsID, id uint) (int64, error)
}

type tableWidgetRepository struct {
	db *gorm.DB
}

// NewTableWidgetRepository creates a new table widget repository instance.
func NewTableWidgetRepository() TableWidgetRepository {
	return &tableWidgetRepository{
		db: config.DB,
	}
}

// NewTableWidgetRepositoryWithDB creates a table widget repository over an explicit connection.
func NewTableWidgetRepositoryWithDB(db *gorm.DB) TableWidgetRepository {
	return &tableWidgetRepository{db: db}
}

func (r *tableWidgetRepository) FindByConnectionAndTable(tx *gorm.DB, connectionID, tableName string) ([]models.TableWidget, error) {
	db := tx
	if db == nil {
		db = r.db
	}

	var widgets []models.TableWidget
	if err := db.Table(models.TableWidget{}.TableName()+" AS w").
		Select("w.*").
		Joins("JOIN table_settings AS s ON s.id = w.settings_id").
		Where("s.connection_id = ? AND s.table_name = ?", connectionID, tableName).
		Find(&widgets).Error; err != nil {
		return nil, err
	}
	return widgets, nil
}

func (r *tableWidgetRepository) FindBySettingsID(tx *gorm.DB, settingsID uint) ([]models.TableWidget, error) {
	db := tx
	if db == nil {
		db = r.db
	}

	var widgets []models.TableWidget
	if err := db.Where("settings_id = ?", settingsID).Find(&widgets).Error; err != nil {
		return nil, err
	}
	return widgets, nil
}

// ReplaceForSettings deletes every widget of the settings record and inserts the given set.
// Callers run it inside a transaction.
func (r *tableWidgetRepository) ReplaceForSettings(tx *gorm.DB, settingsID uint, widgets []models.TableWidget) error {
	db := tx
	if db == nil {
		db = r.db
	}

	if err := db.Where("settings_id = ?", settingsID).Delete(&models.TableWidget{}).Error; err != nil {
		return err
	}
	if len(widgets) == 0 {
		return nil
	}
	for i := range widgets {
		widgets[i].ID = 0
		widgets[i].SettingsID = settingsID
	}
	return db.Create(&widgets).Error
}

func (r *tableWidgetRepository) DeleteByID(tx *gorm.DB, settingsID, id uint) (int64, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	res := db.Where("settings_id = ? AND id = ?", settingsID, id).Delete(&models.TableWidget{})
	return res.RowsAffected, res.Error
}
