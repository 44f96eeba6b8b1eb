package models

import (
	"time"

	"gorm.io/datatypes"
)

type ProviderStatus string

const (
	ProviderPendingReview ProviderStatus = "pending_review"
	ProviderApproved      ProviderStatus = "approved"
	ProviderRejected      ProviderStatus = "rejected"
)

func (s ProviderStatus) Valid() bool {
	switch s {
	case ProviderPendingReview, ProviderApproved, ProviderRejected:
		return true
	}
	return false
}

// Provider is a listed service professional. Rows are never hard-deleted;
// moderation only moves Status. RejectionReason is meaningful only while
// Status is rejected.
type Provider struct {
	ID              string                      `gorm:"primaryKey;size:36" json:"id"`
	Name            string                      `gorm:"size:200;not null" json:"name"`
	Phone           string                      `gorm:"size:40;not null" json:"phone"`
	WhatsApp        string                      `gorm:"column:whatsapp;size:40" json:"whatsapp"`
	Email           string                      `gorm:"size:255" json:"email"`
	CategoryCode    string                      `gorm:"size:64;index;not null" json:"category_code"`
	SampradayaCode  *string                     `gorm:"size:64;index" json:"sampradaya_code"`
	About           string                      `gorm:"type:text" json:"about"`
	Languages       datatypes.JSONSlice[string] `json:"languages"`
	ExperienceYears *int                        `json:"experience_years"`
	ServiceRadiusKm *int                        `json:"service_radius_km"`
	ResponseTime    string                      `gorm:"size:100" json:"response_time"`
	PhotoURL        string                      `gorm:"size:1000" json:"photo_url"` // legacy: absolute URL or storage path
	PrimaryPhotoID  *string                     `gorm:"size:36" json:"primary_photo_id"`
	Status          ProviderStatus              `gorm:"size:20;index;not null" json:"status"`
	RejectionReason string                      `gorm:"type:text" json:"rejection_reason,omitempty"`
	UserID          *uint                       `gorm:"index" json:"user_id,omitempty"`
	TermsAcceptedAt *time.Time                  `json:"terms_accepted_at,omitempty"`
	ReviewedBy      *uint                       `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time                  `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func (Provider) TableName() string { return "providers" }

// ProviderPhoto records one uploaded photo. Paths are object keys inside the
// photo bucket and are never handed to clients unsigned.
type ProviderPhoto struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	ProviderID    string    `gorm:"size:36;index;not null" json:"provider_id"`
	OriginalPath  string    `gorm:"size:500;not null" json:"original_path"`
	ThumbnailPath string    `gorm:"size:500;not null" json:"thumbnail_path"`
	MimeType      string    `gorm:"size:50" json:"mime_type"`
	SizeBytes     int64     `json:"size_bytes"`
	IsPrimary     bool      `gorm:"index" json:"is_primary"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ProviderPhoto) TableName() string { return "provider_photos" }
