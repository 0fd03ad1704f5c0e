package models

// TableWidget describes display and value-transformation behavior for one column.
// WidgetParams is kept as the raw JSON the admin submitted; it is parsed into a typed
// form once when loaded by the widget package.
type TableWidget struct {
	ID            uint   `gorm:"primaryKey;column:id" json:"id"`
	SettingsID    uint   `gorm:"column:settings_id;index" json:"settingsId"`
	FieldName     string `gorm:"column:field_name" json:"field_name"`
	WidgetType    string `gorm:"column:widget_type;type:varchar(64)" json:"widget_type"`
	WidgetParams  string `gorm:"column:widget_params;type:text" json:"widget_params"`
	WidgetOptions string `gorm:"column:widget_options;type:text" json:"widget_options"`
	Name          string `gorm:"column:name" json:"name"`
	Description   string `gorm:"column:description" json:"description"`
}

// TableName specifies the static table name for GORM.
func (TableWidget) TableName() string {
	return "table_widget"
}
