package models

import (
	"gorm.io/datatypes"
)

// QueryOrdering is the default sort direction of a table view.
type QueryOrdering string

// Ordering values.
const (
	OrderingAsc  QueryOrdering = "ASC"
	OrderingDesc QueryOrdering = "DESC"
)

// TableAction is a user-defined button on a table that calls an external URL.
type TableAction struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
}

// TableSettings holds per (connection, table) preferences owned by the admin.
// Can* flags are nil when unset, which means allowed.
type TableSettings struct {
	ID                  uint                            `gorm:"primaryKey;column:id" json:"id"`
	ConnectionID        string                          `gorm:"column:connection_id;type:varchar(36);uniqueIndex:idx_settings_conn_table" json:"connectionId"`
	Table               string                          `gorm:"column:table_name;type:varchar(255);uniqueIndex:idx_settings_conn_table" json:"tableName"`
	DisplayName         string                          `gorm:"column:display_name" json:"displayName"`
	SearchFields        datatypes.JSONSlice[string]     `gorm:"column:search_fields" json:"searchFields"`
	ExcludedFields      datatypes.JSONSlice[string]     `gorm:"column:excluded_fields" json:"excludedFields"`
	ReadonlyFields      datatypes.JSONSlice[string]     `gorm:"column:readonly_fields" json:"readonlyFields"`
	SortableBy          datatypes.JSONSlice[string]     `gorm:"column:sortable_by" json:"sortableBy"`
	ListFields          datatypes.JSONSlice[string]     `gorm:"column:list_fields" json:"listFields"`
	AutocompleteColumns datatypes.JSONSlice[string]     `gorm:"column:autocomplete_columns" json:"autocompleteColumns"`
	ColumnsView         datatypes.JSONSlice[string]     `gorm:"column:columns_view" json:"columnsView"`
	SensitiveFields     datatypes.JSONSlice[string]     `gorm:"column:sensitive_fields" json:"sensitiveFields"`
	Ordering            QueryOrdering                   `gorm:"column:ordering;type:varchar(4)" json:"ordering"`
	OrderingField       string                          `gorm:"column:ordering_field" json:"orderingField"`
	IdentityColumn      string                          `gorm:"column:identity_column" json:"identityColumn"`
	ListPerPage         int                             `gorm:"column:list_per_page" json:"listPerPage"`
	CanAdd              *bool                           `gorm:"column:can_add" json:"canAdd"`
	CanUpdate           *bool                           `gorm:"column:can_update" json:"canUpdate"`
	CanDelete           *bool                           `gorm:"column:can_delete" json:"canDelete"`
	TableActions        datatypes.JSONSlice[TableAction] `gorm:"column:table_actions" json:"tableActions"`
}

// TableName specifies the static table name for GORM.
func (TableSettings) TableName() string {
	return "table_settings"
}

// AllowsAdd reports whether new rows may be inserted. A nil receiver allows everything.
func (s *TableSettings) AllowsAdd() bool {
	return s == nil || s.CanAdd == nil || *s.CanAdd
}

// AllowsUpdate reports whether rows may be edited.
func (s *TableSettings) AllowsUpdate() bool {
	return s == nil || s.CanUpdate == nil || *s.CanUpdate
}

// AllowsDelete reports whether rows may be removed.
func (s *TableSettings) AllowsDelete() bool {
	return s == nil || s.CanDelete == nil || *s.CanDelete
}
