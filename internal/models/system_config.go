package models

import "time"

// SystemConfig holds runtime-tunable settings editable without a redeploy.
type SystemConfig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:config_key;uniqueIndex;size:100;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:20;default:string" json:"type"` // string, int, bool
	Group     string    `gorm:"column:config_group;size:50;index" json:"group"`
	Label     string    `gorm:"size:200" json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SystemConfig) TableName() string { return "system_configs" }

const (
	ConfigLogRetentionDays     = "log_retention_days"
	ConfigAccessTokenHours     = "auth_access_token_expire_hours"
	ConfigRefreshTokenHours    = "auth_refresh_token_expire_hours"
	ConfigDefaultRejectMessage = "moderation_default_reject_reason"
)
