package models

import "time"

// Agent binds an agent token (stored only as its HMAC) to a connection.
type Agent struct {
	ID           uint      `gorm:"primaryKey;column:id" json:"id"`
	ConnectionID string    `gorm:"column:connection_id;type:varchar(36);index" json:"connectionId"`
	TokenHash    string    `gorm:"column:token_hash;uniqueIndex;type:varchar(128)" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"createdAt"`
}

// TableName specifies the static table name for GORM.
func (Agent) TableName() string {
	return "agent"
}
