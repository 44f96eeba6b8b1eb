package models

import "time"

// SystemLog is the audit trail for admin writes and moderation decisions.
type SystemLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Level      string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Module     string    `gorm:"size:100;index" json:"module"`
	Action     string    `gorm:"size:200;index" json:"action"`
	EntityType string    `gorm:"size:50;index" json:"entity_type"`
	EntityID   string    `gorm:"size:64;index" json:"entity_id"`
	Message    string    `gorm:"type:text" json:"message"`
	UserID     *uint     `json:"user_id"`
	Actor      string    `gorm:"size:255" json:"actor"`
	IP         string    `gorm:"size:50" json:"ip"`
	UserAgent  string    `gorm:"size:500" json:"user_agent"`
	Extra      string    `gorm:"type:text" json:"extra"` // JSON
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (SystemLog) TableName() string { return "system_logs" }
