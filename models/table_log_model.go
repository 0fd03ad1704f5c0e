package models

import (
	"time"

	"gorm.io/datatypes"
)

// LogOperationType names the row operation an audit record describes.
type LogOperationType string

// Audited operations.
const (
	LogOperationAddRow      LogOperationType = "addRow"
	LogOperationUpdateRow   LogOperationType = "updateRow"
	LogOperationDeleteRow   LogOperationType = "deleteRow"
	LogOperationRowReceived LogOperationType = "rowReceived"
)

// OperationResultStatus is the outcome recorded on an audit record.
type OperationResultStatus string

// Outcome values.
const (
	OperationResultUnknown        OperationResultStatus = "unknown"
	OperationResultSuccessfully   OperationResultStatus = "successfully"
	OperationResultUnsuccessfully OperationResultStatus = "unsuccessfully"
)

// TableLog is an immutable audit entry written once per row operation.
type TableLog struct {
	ID                    uint                  `gorm:"primaryKey;column:id" json:"id"`
	ConnectionID          string                `gorm:"column:connection_id;type:varchar(36);index" json:"connectionId"`
	Table                 string                `gorm:"column:table_name" json:"tableName"`
	UserID                string                `gorm:"column:user_id" json:"userId"`
	Email                 string                `gorm:"column:email" json:"email"`
	OperationType         LogOperationType      `gorm:"column:operation_type;type:varchar(32)" json:"operationType"`
	OperationStatusResult OperationResultStatus `gorm:"column:operation_status_result;type:varchar(32)" json:"operationStatusResult"`
	ReceivedData          datatypes.JSON        `gorm:"column:received_data" json:"receivedData"`
	OldData               datatypes.JSON        `gorm:"column:old_data" json:"oldData"`
	CreatedAt             time.Time             `gorm:"column:created_at" json:"createdAt"`
}

// TableName specifies the static table name for GORM.
func (TableLog) TableName() string {
	return "table_logs"
}
