package models

import "gorm.io/datatypes"

// CustomField is a computed column rendered from a template such as
// "https://crm.example.com/users/{{id}}".
type CustomField struct {
	ID             uint                        `gorm:"primaryKey;column:id" json:"id"`
	SettingsID     uint                        `gorm:"column:settings_id;index" json:"settingsId"`
	Type           string                      `gorm:"column:type;type:varchar(16)" json:"type"`
	Text           string                      `gorm:"column:text" json:"text"`
	TemplateString string                      `gorm:"column:template_string;type:text" json:"template_string"`
	TemplateFields datatypes.JSONSlice[string] `gorm:"column:template_fields" json:"template_fields"`
}

// TableName specifies the static table name for GORM.
func (CustomField) TableName() string {
	return "custom_fields"
}
